package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	// EnginePlaywright drives Chromium through playwright-go.
	EnginePlaywright = "playwright"
	// EngineChromedp drives Chromium through the DevTools protocol.
	EngineChromedp = "chromedp"

	defaultEngine         = EnginePlaywright
	defaultHeadless       = true
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// BrowserSection selects and configures the browser engine.
type BrowserSection struct {
	Engine         string        `json:"engine"`
	Headless       bool          `json:"headless"`
	BaseURL        string        `json:"base_url"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	SlowMo         time.Duration `json:"slow_mo"`
	mu             sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{
		Engine:         defaultEngine,
		Headless:       defaultHeadless,
		ViewportWidth:  defaultViewportWidth,
		ViewportHeight: defaultViewportHeight,
	}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Browser engine, window size and the CRM base URL."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"engine":          s.Engine,
		"headless":        s.Headless,
		"base_url":        s.BaseURL,
		"viewport_width":  s.ViewportWidth,
		"viewport_height": s.ViewportHeight,
		"slow_mo":         s.SlowMo.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "engine", "base_url":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
			}
			if key == "engine" {
				s.Engine = str
			} else {
				s.BaseURL = str
			}
		case "headless":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for headless: expected bool, got %T", value)
			}
			s.Headless = enabled
		case "viewport_width":
			n, err := parseInt(key, value)
			if err != nil {
				return err
			}
			s.ViewportWidth = n
		case "viewport_height":
			n, err := parseInt(key, value)
			if err != nil {
				return err
			}
			s.ViewportHeight = n
		case "slow_mo":
			d, err := parseDuration(key, value)
			if err != nil {
				return err
			}
			s.SlowMo = d
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ValidateEngine(s.Engine); err != nil {
		return err
	}
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	if s.SlowMo < 0 {
		return fmt.Errorf("slow_mo must not be negative, got %v", s.SlowMo)
	}
	if s.BaseURL != "" {
		if err := ValidateBaseURL(s.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Engine = defaultEngine
	s.Headless = defaultHeadless
	s.BaseURL = ""
	s.ViewportWidth = defaultViewportWidth
	s.ViewportHeight = defaultViewportHeight
	s.SlowMo = 0
}

// Snapshot returns a copy of the settings that is safe to read without locking.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BrowserSettings{
		Engine:         s.Engine,
		Headless:       s.Headless,
		BaseURL:        s.BaseURL,
		ViewportWidth:  s.ViewportWidth,
		ViewportHeight: s.ViewportHeight,
		SlowMo:         s.SlowMo,
	}
}

// BrowserSettings is a plain copy of a BrowserSection.
type BrowserSettings struct {
	Engine         string
	Headless       bool
	BaseURL        string
	ViewportWidth  int
	ViewportHeight int
	SlowMo         time.Duration
}

// ValidateEngine reports whether engine names a supported engine.
func ValidateEngine(engine string) error {
	switch engine {
	case EnginePlaywright, EngineChromedp:
		return nil
	}
	return fmt.Errorf("unknown engine %q: want %s or %s", engine, EnginePlaywright, EngineChromedp)
}

// ValidateBaseURL requires an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

func parseInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("invalid value for %s: %v is not a whole number", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
}
