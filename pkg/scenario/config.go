package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/crmpilot/pkg/pages"
)

// Config is a scenario file: an ordered list of steps run in one session.
type Config struct {
	// Name labels the run in logs and artifacts
	Name string `yaml:"name" json:"name"`

	Steps []Step `yaml:"steps" json:"steps"`

	// Constraints bound the whole run
	Constraints ConstraintConfig `yaml:"constraints" json:"constraints"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// ConfigFilePath is where the scenario was loaded from
	ConfigFilePath string `yaml:"-" json:"config_file_path,omitempty"`
}

// StepKind names what a step does.
type StepKind string

const (
	// KindCreateContact fills and saves the new contact form
	KindCreateContact StepKind = "create_contact"
	// KindCreateCampaign fills and saves the new campaign form, including the parent lookup
	KindCreateCampaign StepKind = "create_campaign"
	// KindCreateView creates a list view from a home screen and checks which records it lists
	KindCreateView StepKind = "create_view"
	// KindProbeLink checks whether a link is shown on the current screen
	KindProbeLink StepKind = "probe_link"
)

// Screen names a tab that has a home screen.
type Screen string

const (
	ScreenContacts  Screen = "contacts"
	ScreenCampaigns Screen = "campaigns"
)

// Step is one unit of work. Exactly the field matching Kind is read.
type Step struct {
	Name string   `yaml:"name" json:"name"`
	Kind StepKind `yaml:"kind" json:"kind"`

	Contact  *pages.Contact  `yaml:"contact,omitempty" json:"contact,omitempty"`
	Campaign *pages.Campaign `yaml:"campaign,omitempty" json:"campaign,omitempty"`
	View     *ViewStep       `yaml:"view,omitempty" json:"view,omitempty"`
	Probe    *ProbeStep      `yaml:"probe,omitempty" json:"probe,omitempty"`
}

// ViewStep creates a list view on Screen.
type ViewStep struct {
	Screen     Screen `yaml:"screen" json:"screen"`
	Name       string `yaml:"name" json:"name"`
	UniqueName string `yaml:"unique_name" json:"unique_name"`

	// ExpectListed and ExpectAbsent are record names checked on the saved view
	ExpectListed []string `yaml:"expect_listed" json:"expect_listed"`
	ExpectAbsent []string `yaml:"expect_absent" json:"expect_absent"`
}

// ProbeStep checks for a link on whatever screen the previous step left.
type ProbeStep struct {
	LinkText string `yaml:"link_text" json:"link_text"`
	Expect   bool   `yaml:"expect" json:"expect"`
}

// ConstraintConfig defines limits for one run
type ConstraintConfig struct {
	// Timeout bounds the whole run, browser launch excluded
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// StepTimeout bounds each step; zero means only Timeout applies
	StepTimeout time.Duration `yaml:"step_timeout" json:"step_timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
}

// Validate checks the scenario and fills in the default verbosity.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}

	if c.Constraints.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Constraints.StepTimeout < 0 {
		return fmt.Errorf("step_timeout cannot be negative")
	}

	for i := range c.Steps {
		if err := c.Steps[i].validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, c.Steps[i].Label(), err)
		}
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (s *Step) validate() error {
	switch s.Kind {
	case KindCreateContact:
		if s.Contact == nil {
			return fmt.Errorf("contact is required")
		}
		if s.Contact.LastName == "" {
			return fmt.Errorf("contact.last_name is required")
		}
	case KindCreateCampaign:
		if s.Campaign == nil {
			return fmt.Errorf("campaign is required")
		}
		if s.Campaign.Name == "" {
			return fmt.Errorf("campaign.name is required")
		}
		if s.Campaign.ParentScope != "" && s.Campaign.Parent == "" {
			return fmt.Errorf("campaign.parent_scope needs campaign.parent")
		}
	case KindCreateView:
		if s.View == nil {
			return fmt.Errorf("view is required")
		}
		if s.View.Screen != ScreenContacts && s.View.Screen != ScreenCampaigns {
			return fmt.Errorf("invalid view.screen: %q (must be %q or %q)", s.View.Screen, ScreenContacts, ScreenCampaigns)
		}
		if s.View.Name == "" {
			return fmt.Errorf("view.name is required")
		}
	case KindProbeLink:
		if s.Probe == nil || s.Probe.LinkText == "" {
			return fmt.Errorf("probe.link_text is required")
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}

// Label is the step name, or its kind when unnamed.
func (s *Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.Kind)
}

// DefaultConfig returns a scenario with no steps and default limits.
func DefaultConfig() *Config {
	return &Config{
		Name: "scenario",
		Constraints: ConstraintConfig{
			Timeout: 10 * time.Minute,
		},
		Artifacts: ArtifactConfig{
			Enabled:   false,
			OutputDir: ".crmpilot/artifacts",
			JSON:      true,
			Markdown:  true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load reads a YAML scenario on top of DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	config.ConfigFilePath = path

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return config, nil
}
