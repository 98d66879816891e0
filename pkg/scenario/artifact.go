package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	if !w.config.Enabled {
		return nil
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteExecutionJSON(summary); err != nil {
			return err
		}
	}

	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return err
		}
	}

	return nil
}

// WriteExecutionJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteExecutionJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "execution.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	md.WriteString("# crmpilot Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Scenario:** %s\n\n", summary.Scenario))
	md.WriteString(fmt.Sprintf("**Session:** %s\n\n", summary.Session))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	if len(summary.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		md.WriteString("| # | Step | Kind | Status | Duration |\n")
		md.WriteString("|---|------|------|--------|----------|\n")
		for i, step := range summary.Steps {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				i+1, step.Name, step.Kind, step.Status, step.Duration.Round(time.Millisecond)))
		}
		md.WriteString("\n")

		for _, step := range summary.Steps {
			if step.Error != "" {
				md.WriteString(fmt.Sprintf("- **%s** failed: %s\n", step.Name, step.Error))
			}
		}
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// ExecutionSummary records one run of a scenario.
type ExecutionSummary struct {
	Scenario  string        `json:"scenario"`
	Session   string        `json:"session"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepResult  `json:"steps"`
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Kind     StepKind      `json:"kind"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	// Window is the browsing context the step finished in, e.g. "W1 > frame(0)"
	Window string `json:"window,omitempty"`
	// Details holds values read back from the screen
	Details map[string]string `json:"details,omitempty"`
}

// Counts returns how many steps passed, failed and were skipped.
func (s *ExecutionSummary) Counts() (passed, failed, skipped int) {
	for _, step := range s.Steps {
		switch step.Status {
		case statusSuccess:
			passed++
		case statusFailed:
			failed++
		case statusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Succeeded reports whether every step passed.
func (s *ExecutionSummary) Succeeded() bool {
	return s.Status == statusSuccess
}
