package handlers

import (
	"net/http"

	"event-signup-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Events    *EventHandler
	Profiles  *ProfileHandler
	Auth      *AuthHandler
	WebSocket *WebSocketHandler
	Validator middleware.TokenValidator
	Login     *middleware.RateLimiter

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the HTTP routes of the API
func NewRouter(rt Router) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if rt.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.Validator))

		r.Route("/auth", func(r chi.Router) {
			r.With(rt.Login.Middleware).Post("/login", rt.Auth.RequestLogin)
			r.Post("/verify", rt.Auth.Verify)
			r.Post("/logout", rt.Auth.Logout)
			r.Get("/session", rt.Auth.Session)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", rt.Events.ListEvents)
			r.Post("/", rt.Events.CreateEvent)
			r.Get("/mine", rt.Events.ListMyEvents)
			r.Get("/{event_id}", rt.Events.GetEvent)
			r.Post("/{event_id}/registrations", rt.Events.Register)
			r.Get("/{event_id}/registration", rt.Events.RegistrationStatus)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", rt.Profiles.GetProfile)
			r.Put("/", rt.Profiles.UpdateProfile)
			r.Put("/push-token", rt.Profiles.UpdatePushToken)
		})
	})

	r.Get("/ws", rt.WebSocket.HandleWebSocket)

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
