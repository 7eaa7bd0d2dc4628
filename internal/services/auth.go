package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"event-signup-backend/internal/auth"
	"event-signup-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const loginTokenBytes = 32

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ProfileSource gives the auth service access to the signed-in user's profile
type ProfileSource interface {
	Current(ctx context.Context) (*models.Profile, error)
	Forget(userID string)
}

// AuthOptions configures token lifetimes and the magic link target
type AuthOptions struct {
	JWTSecret    string
	SessionTTL   time.Duration
	TokenTTL     time.Duration
	MagicLinkURL string
}

// AuthService handles passwordless login and session tokens
type AuthService struct {
	users    UserRepo
	mailer   Mailer
	profiles ProfileSource
	opts     AuthOptions
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepo, mailer Mailer, profiles ProfileSource, opts AuthOptions) *AuthService {
	return &AuthService{
		users:    users,
		mailer:   mailer,
		profiles: profiles,
		opts:     opts,
		now:      time.Now,
	}
}

// LoginResult is returned after a magic link was verified
type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionInfo describes the current session
type SessionInfo struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Profile   *models.Profile `json:"profile"`
}

// RequestLogin emails a single-use login link to email
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email", models.ErrValidation)
	}

	token, err := generateLoginToken()
	if err != nil {
		return fmt.Errorf("failed to generate login token: %w", err)
	}

	expiresAt := s.now().Add(s.opts.TokenTTL)
	if err := s.users.CreateLoginToken(ctx, hashToken(token), email, expiresAt); err != nil {
		return err
	}

	link, err := s.magicLink(token)
	if err != nil {
		return err
	}
	if err := s.mailer.SendLoginLink(ctx, email, link); err != nil {
		return fmt.Errorf("failed to send login link: %w", err)
	}

	log.Info().Str("email", email).Msg("Login link sent")
	return nil
}

func (s *AuthService) magicLink(token string) (string, error) {
	u, err := url.Parse(s.opts.MagicLinkURL)
	if err != nil {
		return "", fmt.Errorf("invalid magic link url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyLogin consumes a login token and opens a session
func (s *AuthService) VerifyLogin(ctx context.Context, token string) (*LoginResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrInvalidLoginToken
	}

	email, err := s.users.ConsumeLoginToken(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}

	user, err := s.users.Upsert(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.users.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	signed, err := s.GenerateJWT(session)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("User logged in")

	return &LoginResult{Token: signed, UserID: user.ID, ExpiresAt: session.ExpiresAt}, nil
}

// GenerateJWT generates a JWT token for a session
func (s *AuthService) GenerateJWT(session *models.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id": session.UserID,
		"sid":     session.ID,
		"exp":     session.ExpiresAt.Unix(),
		"iat":     session.CreatedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ParseJWT validates a JWT token and returns the user and session IDs.
// Every rejection wraps models.ErrInvalidToken.
func (s *AuthService) ParseJWT(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", "", models.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("%w: unexpected claims", models.ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", "", fmt.Errorf("%w: user_id not found in token", models.ErrInvalidToken)
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", "", fmt.Errorf("%w: sid not found in token", models.ErrInvalidToken)
	}

	return userID, sessionID, nil
}

// ValidateToken checks the token signature and that its session is still open
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (string, string, error) {
	userID, sessionID, err := s.ParseJWT(tokenString)
	if err != nil {
		return "", "", err
	}

	active, err := s.users.SessionActive(ctx, sessionID, userID)
	if err != nil {
		return "", "", err
	}
	if !active {
		return "", "", models.ErrSessionNotFound
	}
	return userID, sessionID, nil
}

// Logout closes the current session
func (s *AuthService) Logout(ctx context.Context) error {
	userID, sessionID := auth.UserID(ctx), auth.SessionID(ctx)
	if userID == "" || sessionID == "" {
		return models.ErrNotAuthenticated
	}

	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.profiles.Forget(userID)

	log.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Msg("User logged out")
	return nil
}

// CurrentSession returns the signed-in user with their profile
func (s *AuthService) CurrentSession(ctx context.Context) (*SessionInfo, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	profile, err := s.profiles.Current(ctx)
	if err != nil {
		return nil, err
	}

	return &SessionInfo{
		UserID:    userID,
		SessionID: auth.SessionID(ctx),
		Profile:   profile,
	}, nil
}

func generateLoginToken() (string, error) {
	buf := make([]byte, loginTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
