package scenario

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/pages"
	"github.com/entrhq/crmpilot/pkg/session"
)

// Executor runs a scenario's steps against one session.
type Executor struct {
	config         *Config
	baseURL        string
	console        *Logger
	artifactWriter *ArtifactWriter
}

// NewExecutor validates config and prepares a run against baseURL.
func NewExecutor(config *Config, baseURL string, console *Logger) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if console == nil {
		console = NewLogger(ParseLogLevel(config.Logging.Verbosity))
	}
	return &Executor{
		config:         config,
		baseURL:        baseURL,
		console:        console,
		artifactWriter: NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts),
	}, nil
}

// Run opens the application and executes every step in order. The first
// failing step stops the run; the remaining steps are reported as skipped.
// The returned summary is complete even when err is non-nil.
func (e *Executor) Run(ctx context.Context, s *session.Session) (summary *ExecutionSummary, err error) {
	summary = &ExecutionSummary{
		Scenario:  e.config.Name,
		Session:   s.Name(),
		Status:    "running",
		StartTime: time.Now(),
	}
	log := s.Logger()

	defer func() {
		summary.EndTime = time.Now()
		summary.Duration = summary.EndTime.Sub(summary.StartTime)
		if err != nil {
			summary.Status = statusFailed
			summary.Error = err.Error()
		} else {
			summary.Status = statusSuccess
		}

		if writeErr := e.artifactWriter.WriteAll(summary); writeErr != nil {
			e.console.Warningf("failed to write artifacts: %v", writeErr)
			log.Warnf("failed to write artifacts: %v", writeErr)
		}
		e.console.Summary(summary)
		log.Infof("Scenario %q finished: %s in %s", e.config.Name, summary.Status, summary.Duration)
	}()

	if e.config.Constraints.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Constraints.Timeout)
		defer cancel()
	}

	e.console.Header(fmt.Sprintf("crmpilot: %s", e.config.Name))
	e.console.Infof("Session: %s", s.Name())
	e.console.Infof("Base URL: %s", e.baseURL)
	log.Infof("Starting scenario %q with %d steps", e.config.Name, len(e.config.Steps))

	app := pages.NewApp(s)
	if openErr := app.Open(ctx, e.baseURL); openErr != nil {
		for _, step := range e.config.Steps {
			summary.Steps = append(summary.Steps, StepResult{Name: step.Label(), Kind: step.Kind, Status: statusSkipped})
		}
		return summary, fmt.Errorf("failed to open %s: %w", e.baseURL, openErr)
	}

	e.console.Section("Steps")
	for i := range e.config.Steps {
		step := &e.config.Steps[i]
		if err != nil {
			summary.Steps = append(summary.Steps, StepResult{Name: step.Label(), Kind: step.Kind, Status: statusSkipped})
			continue
		}

		result := e.runStep(ctx, s, app, step)
		summary.Steps = append(summary.Steps, result)
		if result.Status == statusFailed {
			err = fmt.Errorf("step %d (%s) failed: %s", i+1, step.Label(), result.Error)
		}
	}
	return summary, err
}

func (e *Executor) runStep(ctx context.Context, s *session.Session, app *pages.App, step *Step) StepResult {
	e.console.Step(step.Label())
	log := s.Logger()
	log.Infof("Step %s (%s) started", step.Label(), step.Kind)

	if e.config.Constraints.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Constraints.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	details := make(map[string]string)
	var err error
	switch step.Kind {
	case KindCreateContact:
		err = createContact(ctx, app, *step.Contact, details)
	case KindCreateCampaign:
		err = createCampaign(ctx, app, *step.Campaign, details)
	case KindCreateView:
		err = createView(ctx, app, *step.View, details)
	case KindProbeLink:
		err = probeLink(s, *step.Probe, details)
	default:
		err = fmt.Errorf("unknown kind %q", step.Kind)
	}

	result := StepResult{
		Name:     step.Label(),
		Kind:     step.Kind,
		Duration: time.Since(start),
		Window:   s.Windows().Active().String(),
	}
	if len(details) > 0 {
		result.Details = details
	}

	if err != nil {
		result.Status = statusFailed
		result.Error = err.Error()
		e.console.Errorf("%v", err)
		log.Errorf("Step %s failed after %s: %v", step.Label(), result.Duration, err)
		return result
	}

	result.Status = statusSuccess
	for _, k := range slices.Sorted(maps.Keys(details)) {
		e.console.Verbosef("%s: %s", k, details[k])
	}
	e.console.Debugf("context: %s", result.Window)
	e.console.Successf("%s (%s)", step.Label(), result.Duration.Round(time.Millisecond))
	log.Infof("Step %s passed in %s", step.Label(), result.Duration)
	return result
}

func createContact(ctx context.Context, app *pages.App, c pages.Contact, details map[string]string) error {
	home, err := app.GoToContacts(ctx)
	if err != nil {
		return err
	}
	form, err := home.ClickNewButton(ctx)
	if err != nil {
		return err
	}
	if err := form.Fill(ctx, c); err != nil {
		return err
	}
	detail, err := form.Save(ctx)
	if err != nil {
		return err
	}

	name, err := detail.Name(ctx)
	if err != nil {
		return err
	}
	details["name"] = name
	if !strings.Contains(name, c.LastName) {
		return fmt.Errorf("saved contact shows name %q, want it to contain %q", name, c.LastName)
	}

	if c.Email != "" {
		email, err := detail.Email(ctx)
		if err != nil {
			return err
		}
		details["email"] = email
		if email != c.Email {
			return fmt.Errorf("saved contact shows email %q, want %q", email, c.Email)
		}
	}
	return nil
}

func createCampaign(ctx context.Context, app *pages.App, c pages.Campaign, details map[string]string) error {
	home, err := app.GoToCampaigns(ctx)
	if err != nil {
		return err
	}
	form, err := home.ClickNewButton(ctx)
	if err != nil {
		return err
	}
	if err := form.Fill(ctx, c); err != nil {
		return err
	}
	detail, err := form.Save(ctx)
	if err != nil {
		return err
	}

	name, err := detail.Name(ctx)
	if err != nil {
		return err
	}
	details["name"] = name
	if name != c.Name {
		return fmt.Errorf("saved campaign shows name %q, want %q", name, c.Name)
	}

	if c.Parent != "" {
		parent, err := detail.ParentCampaign(ctx)
		if err != nil {
			return err
		}
		details["parent"] = parent
		if parent != c.Parent {
			return fmt.Errorf("saved campaign shows parent %q, want %q", parent, c.Parent)
		}
	}
	return nil
}

func createView(ctx context.Context, app *pages.App, v ViewStep, details map[string]string) error {
	var opener pages.ViewLinkOpener
	var err error
	switch v.Screen {
	case ScreenContacts:
		opener, err = app.GoToContacts(ctx)
	case ScreenCampaigns:
		opener, err = app.GoToCampaigns(ctx)
	default:
		err = fmt.Errorf("invalid view.screen: %q", v.Screen)
	}
	if err != nil {
		return err
	}

	form, err := opener.ClickCreateNewViewLink(ctx)
	if err != nil {
		return err
	}
	if err := form.SetName(ctx, v.Name); err != nil {
		return err
	}
	if v.UniqueName != "" {
		if err := form.SetUniqueName(ctx, v.UniqueName); err != nil {
			return err
		}
	}
	list, err := form.Save(ctx)
	if err != nil {
		return err
	}

	for _, name := range v.ExpectListed {
		listed, err := list.IsRecordListed(name)
		if err != nil {
			return err
		}
		if !listed {
			return fmt.Errorf("view %q does not list %q", v.Name, name)
		}
	}
	for _, name := range v.ExpectAbsent {
		listed, err := list.IsRecordListed(name)
		if err != nil {
			return err
		}
		if listed {
			return fmt.Errorf("view %q unexpectedly lists %q", v.Name, name)
		}
	}
	details["checked"] = fmt.Sprintf("%d listed, %d absent", len(v.ExpectListed), len(v.ExpectAbsent))
	return nil
}

func probeLink(s actions.Session, p ProbeStep, details map[string]string) error {
	present, err := actions.ElementPresentByLinkText(s, p.LinkText)
	if err != nil {
		return err
	}
	details["present"] = fmt.Sprintf("%t", present)
	if present != p.Expect {
		return fmt.Errorf("link %q present=%t, want %t", p.LinkText, present, p.Expect)
	}
	return nil
}
