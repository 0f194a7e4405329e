// Package auth signs admins in with email/password or Google and decides
// whether a session may use the admin surface. A session alone is not
// enough: the user's profile document must also carry the admin role, and it
// is re-read on every check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shivamksharma/devdonations/pkg/db"
)

const (
	SessionCookie = "devdonations_session"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAdmin           = errors.New("admin role required")
	ErrNoSession          = errors.New("not signed in")
	ErrInvalidState       = errors.New("sign-in request expired, please try again")
	ErrUnverifiedEmail    = errors.New("google account email is not verified")
	ErrProviderDisabled   = errors.New("google sign-in is not configured")
)

// UserStore is the subset of the users accessor auth needs
type UserStore interface {
	Get(ctx context.Context, id string) (db.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (db.UserProfile, error)
	Create(ctx context.Context, profile db.UserProfile) (string, error)
	Update(ctx context.Context, id string, fields db.Fields) error
}

var _ UserStore = (*db.Users)(nil)

type Service struct {
	users    UserStore
	sessions *Sessions
	google   IdentityProvider
	logger   *zap.Logger
}

// NewService creates the auth service. google may be nil, which disables
// Google sign-in.
func NewService(users UserStore, sessions *Sessions, google IdentityProvider, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		google:   google,
		logger:   logger,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// SignInWithPassword checks the credentials and starts a session
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	profile, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if profile.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.sessions.Create(profile.ID)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("Signed in", zap.String("userId", profile.ID), zap.String("provider", ProviderPassword))
	return session, nil
}

func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleLoginURL returns the consent URL carrying a fresh state
func (s *Service) GoogleLoginURL() (string, error) {
	if s.google == nil {
		return "", ErrProviderDisabled
	}
	state, err := s.sessions.NewState()
	if err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state), nil
}

// SignInWithGoogle completes the Google flow. A Google user without a
// profile gets one with the user role.
func (s *Service) SignInWithGoogle(ctx context.Context, state, code string) (Session, error) {
	if s.google == nil {
		return Session{}, ErrProviderDisabled
	}
	if !s.sessions.ConsumeState(state) {
		return Session{}, ErrInvalidState
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return Session{}, err
	}
	if !identity.Verified {
		return Session{}, ErrUnverifiedEmail
	}

	userID, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return Session{}, err
	}

	session, err := s.sessions.Create(userID)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("Signed in", zap.String("userId", userID), zap.String("provider", ProviderGoogle))
	return session, nil
}

func (s *Service) findOrCreate(ctx context.Context, identity Identity) (string, error) {
	profile, err := s.users.FindByEmail(ctx, identity.Email)
	if err == nil {
		return profile.ID, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}

	id, err := s.users.Create(ctx, db.UserProfile{
		Email:       identity.Email,
		DisplayName: identity.Name,
		Role:        db.RoleUser,
		Provider:    ProviderGoogle,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create profile for %s: %w", identity.Email, err)
	}
	s.logger.Info("Created profile for google user", zap.String("userId", id))
	return id, nil
}

func (s *Service) SignOut(sessionID string) {
	s.sessions.Delete(sessionID)
}

// Authenticate returns the profile behind a live session
func (s *Service) Authenticate(ctx context.Context, sessionID string) (db.UserProfile, error) {
	session, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return db.UserProfile{}, ErrNoSession
	}

	profile, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.sessions.Delete(sessionID)
			return db.UserProfile{}, ErrNoSession
		}
		return db.UserProfile{}, err
	}
	return profile, nil
}

// RequireAdmin returns the profile when the session is live and the profile
// carries the admin role
func (s *Service) RequireAdmin(ctx context.Context, sessionID string) (db.UserProfile, error) {
	profile, err := s.Authenticate(ctx, sessionID)
	if err != nil {
		return db.UserProfile{}, err
	}
	if !profile.IsAdmin() {
		return db.UserProfile{}, ErrNotAdmin
	}
	return profile, nil
}

func (s *Service) IsAdmin(ctx context.Context, sessionID string) bool {
	_, err := s.RequireAdmin(ctx, sessionID)
	return err == nil
}

// EnsureAdmin creates an admin with a password, or promotes and resets the
// password of an existing user with that email. Returns the user id.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, displayName string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("admin password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	profile, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		fields := db.Fields{"role": db.RoleAdmin, "passwordHash": hash}
		if strings.TrimSpace(displayName) != "" {
			fields["displayName"] = displayName
		}
		if err := s.users.Update(ctx, profile.ID, fields); err != nil {
			return "", fmt.Errorf("failed to promote %s: %w", email, err)
		}
		return profile.ID, nil
	case errors.Is(err, db.ErrNotFound):
		return s.users.Create(ctx, db.UserProfile{
			Email:        email,
			DisplayName:  displayName,
			Role:         db.RoleAdmin,
			Provider:     ProviderPassword,
			PasswordHash: hash,
		})
	default:
		return "", err
	}
}
