package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/clock"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// SessionStatus describes the stored session without touching it.
type SessionStatus struct {
	LoggedIn     bool
	Username     string
	LastActivity time.Time
	Remaining    time.Duration // Zero when unknown or logged out.
}

// AuthService handles the account boundary: sign-up, login, and the
// protected-area check. Token issuance is the remote service's job; this
// service only stores and clears the bearer credential.
type AuthService struct {
	auth    driven.Authenticator
	tokens  driven.SessionTokenStore
	nav     driven.Navigator
	logger  *slog.Logger
	meta    driven.SessionMetaStore
	clock   clock.Clock
	timeout time.Duration
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(auth driven.Authenticator, tokens driven.SessionTokenStore, nav driven.Navigator, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{auth: auth, tokens: tokens, nav: nav, logger: logger, clock: clock.Real()}
}

// WithInactivityTimeout makes RequireSession enforce timeout against the
// persisted last activity instant, so a stored credential left idle across
// process runs expires just like a live session.
func (s *AuthService) WithInactivityTimeout(meta driven.SessionMetaStore, clk clock.Clock, timeout time.Duration) *AuthService {
	s.meta = meta
	s.timeout = timeout
	if clk != nil {
		s.clock = clk
	}
	return s
}

// Register creates a remote account. It does not log in.
func (s *AuthService) Register(ctx context.Context, reg driven.Registration) error {
	if strings.TrimSpace(reg.Username) == "" {
		return &model.ValidationError{Field: "username", Message: "username is required"}
	}
	if reg.Password == "" {
		return &model.ValidationError{Field: "password", Message: "password is required"}
	}

	if err := s.auth.Register(ctx, reg); err != nil {
		return fmt.Errorf("register %q: %w", reg.Username, err)
	}
	s.logger.Info("account registered", "username", reg.Username)
	return nil
}

// Login exchanges credentials for a bearer token, stores it, and enters the
// protected area.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	token, err := s.auth.Login(ctx, username, password)
	if errors.Is(err, driven.ErrUnauthorized) {
		return fmt.Errorf("login %q: %w: %w", username, ErrInvalidCredentials, err)
	}
	if err != nil {
		return fmt.Errorf("login %q: %w", username, err)
	}

	if err := s.tokens.SetToken(ctx, token); err != nil {
		return fmt.Errorf("store session credential: %w", err)
	}
	if s.meta != nil {
		if err := s.meta.SetUsername(ctx, username); err != nil {
			return fmt.Errorf("store session username: %w", err)
		}
		if err := s.meta.TouchActivity(ctx, s.clock.Now()); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
	}

	s.logger.Info("logged in", "username", username)
	s.nav.GoToDashboard()
	return nil
}

// RequireSession guards protected operations. Without a stored credential it
// sends the user to login and returns ErrNoSession. A credential idle for the
// inactivity timeout is cleared and ErrSessionExpired returned; otherwise the
// call counts as activity.
func (s *AuthService) RequireSession(ctx context.Context) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read session credential: %w", err)
	}
	if token == "" {
		s.nav.GoToLogin("")
		return ErrNoSession
	}

	if s.meta == nil || s.timeout <= 0 {
		return nil
	}

	last, err := s.meta.LastActivity(ctx)
	if err != nil {
		return fmt.Errorf("read last activity: %w", err)
	}
	now := s.clock.Now()
	if !last.IsZero() && now.Sub(last) >= s.timeout {
		s.logger.Info("stored session expired", "idle", now.Sub(last).Round(time.Second))
		if err := s.tokens.ClearToken(ctx); err != nil {
			return fmt.Errorf("clear session credential: %w", err)
		}
		s.nav.GoToLogin(NoticeSessionExpired)
		return ErrSessionExpired
	}

	return s.Touch(ctx)
}

// Touch records now as the last activity of the stored session.
func (s *AuthService) Touch(ctx context.Context) error {
	if s.meta == nil {
		return nil
	}
	if err := s.meta.TouchActivity(ctx, s.clock.Now()); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Status reports the stored session. It does not count as activity.
func (s *AuthService) Status(ctx context.Context) (SessionStatus, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("read session credential: %w", err)
	}
	if token == "" {
		return SessionStatus{}, nil
	}

	status := SessionStatus{LoggedIn: true}
	if s.meta == nil {
		return status, nil
	}

	if status.Username, err = s.meta.Username(ctx); err != nil {
		return SessionStatus{}, fmt.Errorf("read session username: %w", err)
	}
	if status.LastActivity, err = s.meta.LastActivity(ctx); err != nil {
		return SessionStatus{}, fmt.Errorf("read last activity: %w", err)
	}
	if !status.LastActivity.IsZero() && s.timeout > 0 {
		status.Remaining = max(0, s.timeout-s.clock.Now().Sub(status.LastActivity))
	}
	return status, nil
}

// Logout clears the stored credential when no live SessionClock is around to
// do it, e.g. from a one-shot command.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear session credential: %w", err)
	}
	s.logger.Info("logged out")
	s.nav.GoToLogin("")
	return nil
}
