package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/crmpilot/pkg/wait"
)

const (
	// SectionIDWait is the identifier for the wait settings section
	SectionIDWait = "wait"

	minWaitTimeout      = 100 * time.Millisecond
	maxWaitTimeout      = 10 * time.Minute
	minWaitPollInterval = 10 * time.Millisecond
)

// WaitSection holds how long element waits last and how often they poll.
type WaitSection struct {
	Timeout      time.Duration `json:"timeout"`
	PollInterval time.Duration `json:"poll_interval"`
	mu           sync.RWMutex
}

// NewWaitSection creates a wait section with the default policy.
func NewWaitSection() *WaitSection {
	return &WaitSection{
		Timeout:      wait.DefaultTimeout,
		PollInterval: wait.DefaultPollInterval,
	}
}

// ID returns the section identifier.
func (s *WaitSection) ID() string {
	return SectionIDWait
}

// Title returns the section title.
func (s *WaitSection) Title() string {
	return "Wait Settings"
}

// Description returns the section description.
func (s *WaitSection) Description() string {
	return "How long to wait for an element or frame to become ready, and how often to check."
}

// Data returns the current configuration data.
func (s *WaitSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"timeout":       s.Timeout.String(),
		"poll_interval": s.PollInterval.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *WaitSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "timeout":
			d, err := parseDuration(key, value)
			if err != nil {
				return err
			}
			s.Timeout = d
		case "poll_interval":
			d, err := parseDuration(key, value)
			if err != nil {
				return err
			}
			s.PollInterval = d
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *WaitSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Timeout < minWaitTimeout || s.Timeout > maxWaitTimeout {
		return fmt.Errorf("timeout must be between %v and %v, got %v", minWaitTimeout, maxWaitTimeout, s.Timeout)
	}
	if s.PollInterval < minWaitPollInterval || s.PollInterval > s.Timeout {
		return fmt.Errorf("poll_interval must be between %v and the timeout (%v), got %v", minWaitPollInterval, s.Timeout, s.PollInterval)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *WaitSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Timeout = wait.DefaultTimeout
	s.PollInterval = wait.DefaultPollInterval
}

// Policy returns the settings as a wait policy.
func (s *WaitSection) Policy() wait.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return wait.Policy{Timeout: s.Timeout, PollInterval: s.PollInterval}
}

// SetTimeout sets the wait timeout.
func (s *WaitSection) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Timeout = d
}

// parseDuration accepts a Go duration string or a number of milliseconds.
func parseDuration(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return d, nil
	case float64:
		// JSON numbers come as float64
		return time.Duration(v * float64(time.Millisecond)), nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
}
