package config

import (
	"fmt"
	"os"
	"time"

	"github.com/entrhq/crmpilot/pkg/wait"
)

const (
	// EnvBaseURL overrides browser.base_url.
	EnvBaseURL = "CRMPILOT_BASE_URL"
	// EnvEngine overrides browser.engine.
	EnvEngine = "CRMPILOT_ENGINE"
)

// RunFlags are the command line overrides for one run. Zero values mean
// "not given".
type RunFlags struct {
	Engine   string
	BaseURL  string
	Headless *bool
	Timeout  time.Duration
}

// RunSettings is everything needed to start a session.
type RunSettings struct {
	Browser BrowserSettings
	Wait    wait.Policy
}

// ResolveRun merges settings with this precedence:
// CLI flags > Environment variables > Config file > Defaults
func ResolveRun(flags RunFlags) (RunSettings, error) {
	browser := NewBrowserSection().Snapshot()
	if b := GetBrowser(); b != nil {
		browser = b.Snapshot()
	}
	policy := NewWaitSection().Policy()
	if w := GetWait(); w != nil {
		policy = w.Policy()
	}

	if v := os.Getenv(EnvEngine); v != "" {
		browser.Engine = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		browser.BaseURL = v
	}

	if flags.Engine != "" {
		browser.Engine = flags.Engine
	}
	if flags.BaseURL != "" {
		browser.BaseURL = flags.BaseURL
	}
	if flags.Headless != nil {
		browser.Headless = *flags.Headless
	}
	if flags.Timeout > 0 {
		policy.Timeout = flags.Timeout
		if policy.PollInterval > policy.Timeout {
			policy.PollInterval = policy.Timeout
		}
	}

	if err := ValidateEngine(browser.Engine); err != nil {
		return RunSettings{}, err
	}
	if browser.BaseURL == "" {
		return RunSettings{}, fmt.Errorf("base URL is required. Set %s, use --base-url, or configure browser.base_url", EnvBaseURL)
	}
	if err := ValidateBaseURL(browser.BaseURL); err != nil {
		return RunSettings{}, err
	}

	return RunSettings{Browser: browser, Wait: policy}, nil
}
