// Package session provides the handle that one automation run passes around:
// the driver, the wait policy, the window stack and a logger. There is no
// package-level session; every run constructs and owns its own.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/wait"
	"github.com/entrhq/crmpilot/pkg/window"
)

// ErrSessionNotInitialized is returned by Driver on a closed or zero session.
var ErrSessionNotInitialized = errors.New("session not initialized")

// Launcher starts a browser and returns a driver connected to it.
type Launcher func(ctx context.Context) (driver.Driver, error)

// Option configures a Session.
type Option func(*Session)

// WithPolicy sets the wait policy used by every action of the session.
func WithPolicy(p wait.Policy) Option {
	return func(s *Session) {
		s.waiter = wait.NewWaiter(p)
	}
}

// WithLogger sets the logger. The session does not close it.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// Session is the handle for one automation run.
type Session struct {
	mu       sync.Mutex
	name     string
	d        driver.Driver
	waiter   *wait.Waiter
	windows  *window.Stack
	logger   *logging.Logger
	ownedLog *logging.Logger
	closed   bool

	createdAt  time.Time
	lastUsedAt time.Time
}

// New wraps d in a session named name. The session owns d and quits it on Close.
func New(name string, d driver.Driver, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		name:       name,
		d:          d,
		createdAt:  now,
		lastUsedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.waiter == nil {
		s.waiter = wait.NewWaiter(wait.DefaultPolicy())
	}
	if s.logger == nil {
		// NewLogger falls back to stderr on error, so the logger is always usable.
		l, _ := logging.NewLogger("session")
		s.ownedLog = l
		s.logger = l.With(name)
	}
	s.windows = window.NewStack(s)
	s.logger.Infof("session %s started (timeout %s, poll %s)", name, s.waiter.Policy().Timeout, s.waiter.Policy().PollInterval)
	return s
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Driver returns the underlying driver, or ErrSessionNotInitialized once the
// session is closed.
func (s *Session) Driver() (driver.Driver, error) {
	if s == nil {
		return nil, ErrSessionNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.d == nil {
		return nil, ErrSessionNotInitialized
	}
	s.lastUsedAt = time.Now()
	return s.d, nil
}

// Waiter returns the session's wait policy holder.
func (s *Session) Waiter() *wait.Waiter {
	return s.waiter
}

// Windows returns the session's window stack.
func (s *Session) Windows() *window.Stack {
	return s.windows
}

// Logger returns the session logger.
func (s *Session) Logger() *logging.Logger {
	if s == nil || s.logger == nil {
		return logging.Discard()
	}
	return s.logger
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastUsedAt returns when the driver was last handed out.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// Close quits the driver. Only the first call has any effect.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	d := s.d
	s.mu.Unlock()

	var err error
	if d != nil {
		if qerr := d.Quit(); qerr != nil {
			err = fmt.Errorf("quit driver: %w", qerr)
			s.logger.Errorf("session %s: %v", s.name, err)
		}
	}
	s.logger.Infof("session %s closed after %s", s.name, time.Since(s.createdAt).Round(time.Millisecond))
	if s.ownedLog != nil {
		_ = s.ownedLog.Close()
	}
	return err
}

// Run launches a driver, hands a new session to fn and closes the session on
// every exit path. A panic in fn is re-raised after the driver has quit.
func Run(ctx context.Context, name string, launch Launcher, fn func(ctx context.Context, s *Session) error, opts ...Option) (err error) {
	d, err := launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s := New(name, d, opts...)

	defer func() {
		if r := recover(); r != nil {
			s.Logger().Errorf("session %s panicked: %v", name, r)
			_ = s.Close()
			panic(r)
		}
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, s)
}
