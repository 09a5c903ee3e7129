// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/vaultpanel/internal/clock"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Session lifecycle defaults.
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultWarningLead    = 5 * time.Minute
	DefaultTickInterval   = 1 * time.Second
)

// User-visible notices raised on expiry.
const (
	NoticeSessionExpired = "Your session has expired. Please log in again."
	NoticeUnauthorized   = "Your session is no longer valid. Please log in again."
)

// SessionConfig holds the fixed timing parameters of a session.
type SessionConfig struct {
	Timeout      time.Duration
	WarningLead  time.Duration
	TickInterval time.Duration
}

// DefaultSessionConfig returns the 30 minute timeout with a 5 minute warning,
// checked every second.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:      DefaultSessionTimeout,
		WarningLead:  DefaultWarningLead,
		TickInterval: DefaultTickInterval,
	}
}

// SessionEvent describes one state change of a SessionClock.
type SessionEvent struct {
	State     model.SessionState
	Previous  model.SessionState
	Reason    model.ExpiryReason // Set only when State is SessionExpired.
	Remaining time.Duration      // Time left before expiry at the moment of the change.
}

// SessionTerminator ends a session from outside the inactivity path.
type SessionTerminator interface {
	Terminate(reason model.ExpiryReason)
}

// Compile-time interface satisfaction check.
var _ SessionTerminator = (*SessionClock)(nil)

// SessionClock is the inactivity state machine of one authenticated session.
// A session starts Active, shows a warning during the last WarningLead of
// inactivity, and ends in Expired, which is terminal. A new login creates a
// new SessionClock.
//
// Each transition completes under the mutex; credential clearing, navigation
// and subscriber callbacks run after it is released.
type SessionClock struct {
	mu           sync.Mutex
	clock        clock.Clock
	cfg          SessionConfig
	tokens       driven.SessionTokenStore
	nav          driven.Navigator
	logger       *slog.Logger
	lastActivity time.Time
	state        model.SessionState
	reason       model.ExpiryReason
	subscribers  map[uint64]func(SessionEvent)
	nextSubID    uint64
	done         chan struct{}
}

// NewSessionClock starts a session at clk.Now(). Zero durations in cfg fall
// back to the defaults.
func NewSessionClock(
	clk clock.Clock,
	cfg SessionConfig,
	tokens driven.SessionTokenStore,
	nav driven.Navigator,
	logger *slog.Logger,
) *SessionClock {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSessionTimeout
	}
	if cfg.WarningLead <= 0 || cfg.WarningLead >= cfg.Timeout {
		cfg.WarningLead = min(DefaultWarningLead, cfg.Timeout/2)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionClock{
		clock:        clk,
		cfg:          cfg,
		tokens:       tokens,
		nav:          nav,
		logger:       logger,
		lastActivity: clk.Now(),
		state:        model.SessionActive,
		subscribers:  make(map[uint64]func(SessionEvent)),
		done:         make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *SessionClock) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns why the session expired, or "" while it is live.
func (s *SessionClock) Reason() model.ExpiryReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Remaining returns the time left before inactivity expiry. It is zero once
// the session has expired.
func (s *SessionClock) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(s.clock.Now())
}

// Config returns the timing parameters in effect.
func (s *SessionClock) Config() SessionConfig {
	return s.cfg
}

// Done returns a channel that is closed when the session expires.
func (s *SessionClock) Done() <-chan struct{} {
	return s.done
}

// Expired reports whether the session has ended.
func (s *SessionClock) Expired() bool {
	return s.State() == model.SessionExpired
}

// RecordActivity handles a user input signal. Recognized kinds reset the
// inactivity timer and clear any warning; unrecognized kinds and signals
// after expiry are ignored.
func (s *SessionClock) RecordActivity(kind model.ActivityKind) {
	if !kind.Recognized() {
		return
	}
	s.touch()
}

// Extend keeps the session alive from the warning prompt. It behaves exactly
// like an activity signal.
func (s *SessionClock) Extend() {
	s.touch()
}

func (s *SessionClock) touch() {
	s.mu.Lock()
	if s.state == model.SessionExpired {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	s.lastActivity = now
	ev, changed := s.transitionLocked(model.SessionActive, "", now)
	subs := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, ev)
	}
}

// Tick evaluates the time since the last activity and moves the state
// machine accordingly. It returns the resulting state.
func (s *SessionClock) Tick() model.SessionState {
	s.mu.Lock()
	if s.state == model.SessionExpired {
		s.mu.Unlock()
		return model.SessionExpired
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.lastActivity)

	next := model.SessionActive
	switch {
	case elapsed >= s.cfg.Timeout:
		finish := s.expireLocked(model.ExpiryInactivity)
		s.mu.Unlock()
		finish()
		return model.SessionExpired
	case elapsed >= s.cfg.Timeout-s.cfg.WarningLead:
		next = model.SessionWarningShown
	}

	ev, changed := s.transitionLocked(next, "", now)
	subs := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	if changed {
		if next == model.SessionWarningShown {
			s.logger.Info("session expiry warning", "remaining", ev.Remaining.Round(time.Second))
		}
		notify(subs, ev)
	}
	return next
}

// Logout ends the session immediately regardless of elapsed time.
func (s *SessionClock) Logout() {
	s.expire(model.ExpiryLogout)
}

// Terminate ends the session for the given reason. It is the shared
// termination path used when the remote service rejects the credential.
func (s *SessionClock) Terminate(reason model.ExpiryReason) {
	s.expire(reason)
}

// expire performs the transition to Expired and its side effects exactly once.
func (s *SessionClock) expire(reason model.ExpiryReason) {
	s.mu.Lock()
	if s.state == model.SessionExpired {
		s.mu.Unlock()
		return
	}
	finish := s.expireLocked(reason)
	s.mu.Unlock()
	finish()
}

// expireLocked moves to Expired and returns the side effects to run once the
// mutex is released.
func (s *SessionClock) expireLocked(reason model.ExpiryReason) func() {
	ev, _ := s.transitionLocked(model.SessionExpired, reason, s.clock.Now())
	s.reason = reason
	subs := s.snapshotSubscribersLocked()
	close(s.done)

	return func() {
		s.logger.Info("session expired", "reason", reason)

		// The state is already terminal; a failed clear is logged but cannot
		// bring the session back.
		if err := s.tokens.ClearToken(context.Background()); err != nil {
			s.logger.Error("failed to clear session credential", "error", err)
		}

		notify(subs, ev)

		switch reason {
		case model.ExpiryInactivity:
			s.nav.GoToLogin(NoticeSessionExpired)
		case model.ExpiryUnauthorized:
			s.nav.GoToLogin(NoticeUnauthorized)
		default:
			s.nav.GoToLogin("")
		}
	}
}

// Subscribe registers fn to receive every state change. The returned
// function releases the subscription and is safe to call more than once.
func (s *SessionClock) Subscribe(fn func(SessionEvent)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Run drives Tick at the configured cadence until ctx is canceled or the
// session expires. The ticker is released when Run returns.
func (s *SessionClock) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.Tick() == model.SessionExpired {
				return
			}
		}
	}
}

// transitionLocked moves to next and reports whether the state changed.
func (s *SessionClock) transitionLocked(next model.SessionState, reason model.ExpiryReason, now time.Time) (SessionEvent, bool) {
	prev := s.state
	s.state = next
	ev := SessionEvent{
		State:     next,
		Previous:  prev,
		Reason:    reason,
		Remaining: s.remainingLocked(now),
	}
	return ev, prev != next
}

func (s *SessionClock) remainingLocked(now time.Time) time.Duration {
	if s.state == model.SessionExpired {
		return 0
	}
	return max(0, s.cfg.Timeout-now.Sub(s.lastActivity))
}

func (s *SessionClock) snapshotSubscribersLocked() []func(SessionEvent) {
	subs := make([]func(SessionEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(SessionEvent), ev SessionEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}
