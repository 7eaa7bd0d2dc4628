package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-signup-backend/internal/config"
	"event-signup-backend/internal/handlers"
	"event-signup-backend/internal/jobs"
	"event-signup-backend/internal/middleware"
	"event-signup-backend/internal/migrations"
	"event-signup-backend/internal/notification"
	"event-signup-backend/internal/repository"
	"event-signup-backend/internal/services"
	"event-signup-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	configEnv         = "EVENTS_CONFIG"
	defaultConfigPath = "config.yaml"
	cleanupInterval   = 10 * time.Minute
	visitorMaxIdle    = 30 * time.Minute
)

func Run() {
	path := os.Getenv(configEnv)
	if path == "" {
		path = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.MigrateOnBoot {
		if err := migrations.Up(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Infrastructure
	images, err := storage.NewImageStore(ctx, storage.Options{
		Region:     cfg.AWS.Region,
		Bucket:     cfg.AWS.S3Bucket,
		AccessKey:  cfg.AWS.AccessKey,
		SecretKey:  cfg.AWS.SecretKey,
		Endpoint:   cfg.AWS.Endpoint,
		PathStyle:  cfg.AWS.PathStyle,
		URLExpires: time.Duration(cfg.AWS.URLExpires) * time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}

	mailer := notification.NewEmailSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.FromName,
	)

	pusher, err := notification.NewAPNSPusher(
		cfg.APNS.CertificatePath,
		cfg.APNS.Password,
		cfg.APNS.Topic,
		cfg.APNS.Production,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create APNs client")
	}

	wsHub := services.NewWSHub()

	// Services
	profileService := services.NewProfileService(profileRepo, services.NewProfileCache(), wsHub)
	dispatcher := notification.NewDispatcher(wsHub, profileService, pusher)
	eventService := services.NewEventService(eventRepo, regRepo, images, dispatcher, wsHub)
	authService := services.NewAuthService(userRepo, mailer, profileService, services.AuthOptions{
		JWTSecret:    cfg.JWT.Secret,
		SessionTTL:   cfg.JWT.SessionTTL(),
		TokenTTL:     cfg.Auth.TokenTTL(),
		MagicLinkURL: cfg.Auth.MagicLinkURL,
	})

	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst)
	emailLimiter := middleware.NewRateLimiter(cfg.Auth.EmailPerMinute, cfg.Auth.EmailBurst)

	router := handlers.NewRouter(handlers.Router{
		Events:     handlers.NewEventHandler(eventService, images),
		Profiles:   handlers.NewProfileHandler(profileService),
		Auth:       handlers.NewAuthHandler(authService, emailLimiter),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, authService),
		Validator:  authService,
		Login:      loginLimiter,
		TrustProxy: cfg.Server.TrustProxy,
	})

	go jobs.NewCleanupJob(userRepo, cleanupInterval, visitorMaxIdle, loginLimiter, emailLimiter).Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	wsHub.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
