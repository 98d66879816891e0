package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxSessions is the maximum number of concurrent sessions.
	DefaultMaxSessions = 5

	// DefaultIdleTimeout is how long a session may go unused before CleanupIdle closes it.
	DefaultIdleTimeout = 30 * time.Minute
)

// Manager keeps named sessions for callers that run several scenarios side by side.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	launch      Launcher
	opts        []Option
	maxSessions int
	idleTimeout time.Duration
}

// NewManager creates a manager that starts sessions with launch and opts.
func NewManager(launch Launcher, opts ...Option) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		launch:      launch,
		opts:        opts,
		maxSessions: DefaultMaxSessions,
		idleTimeout: DefaultIdleTimeout,
	}
}

// Start launches a browser and registers a session under name.
func (m *Manager) Start(ctx context.Context, name string, opts ...Option) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}

	d, err := m.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser for %q: %w", name, err)
	}

	all := append(append([]Option(nil), m.opts...), opts...)
	s := New(name, d, all...)
	m.sessions[name] = s
	return s, nil
}

// Get retrieves an open session by name.
func (m *Manager) Get(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[name]
	if !exists {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return s, nil
}

// Close closes and forgets the named session.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	s, exists := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("session %q not found", name)
	}
	return s.Close()
}

// CloseAll closes every session. It keeps going past failures and returns them joined.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for name, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Info describes an open session.
type Info struct {
	Name       string
	Window     string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// List returns the open sessions ordered by name.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, Info{
			Name:       s.Name(),
			Window:     s.Windows().Active().String(),
			CreatedAt:  s.CreatedAt(),
			LastUsedAt: s.LastUsedAt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdle closes sessions that have not used their driver within the idle
// timeout and returns their names.
func (m *Manager) CleanupIdle() ([]string, error) {
	m.mu.Lock()
	now := time.Now()
	var idle []*Session
	for name, s := range m.sessions {
		if now.Sub(s.LastUsedAt()) > m.idleTimeout {
			idle = append(idle, s)
			delete(m.sessions, name)
		}
	}
	m.mu.Unlock()

	names := make([]string, 0, len(idle))
	var errs []error
	for _, s := range idle {
		names = append(names, s.Name())
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close idle %q: %w", s.Name(), err))
		}
	}
	sort.Strings(names)
	return names, errors.Join(errs...)
}

// SetMaxSessions sets the maximum number of concurrent sessions.
func (m *Manager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = max
}

// SetIdleTimeout sets the idle timeout.
func (m *Manager) SetIdleTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = timeout
}
