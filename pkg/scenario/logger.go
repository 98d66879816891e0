package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only errors, warnings and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows step progress (default)
	LogLevelNormal
	// LogLevelVerbose adds values read back from the screen
	LogLevelVerbose
	// LogLevelDebug adds browsing context details
	LogLevelDebug
)

// Logger prints run progress to the console.
type Logger struct {
	level  LogLevel
	writer io.Writer

	stepCount int
}

// NewLogger creates a console logger writing to stdout.
func NewLogger(level LogLevel) *Logger {
	return NewWriterLogger(level, os.Stdout)
}

// NewWriterLogger creates a console logger writing to w.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{level: level, writer: w}
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		rule := strings.Repeat("=", 70)
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n",
			headerStyle.Render(rule), headerStyle.Render("  "+message), headerStyle.Render(rule))
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintln(l.writer, sectionStyle.Render("▶ "+title))
		fmt.Fprintln(l.writer, mutedStyle.Render(strings.Repeat("─", 50)))
	}
}

// Step prints a numbered step
func (l *Logger) Step(message string) {
	if l.level >= LogLevelNormal {
		l.stepCount++
		fmt.Fprintf(l.writer, "\n%s\n", sectionStyle.Render(fmt.Sprintf("[%d] %s", l.stepCount, message)))
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer, infoStyle.Render(fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		fmt.Fprintln(l.writer, warningStyle.Render("⚠ Warning: "+fmt.Sprintf(format, args...)))
	}
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		fmt.Fprintln(l.writer, errorStyle.Render("✗ Error: "+fmt.Sprintf(format, args...)))
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		fmt.Fprintln(l.writer, mutedStyle.Render("→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		fmt.Fprintln(l.writer, mutedStyle.Render("[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// Summary prints the end-of-run summary box. It is shown at every level.
func (l *Logger) Summary(summary *ExecutionSummary) {
	var b strings.Builder

	b.WriteString(headerStyle.Render("RUN SUMMARY"))
	b.WriteString("\n\n")
	b.WriteString("Status:   " + statusBadge(summary.Status) + "\n")
	b.WriteString(fmt.Sprintf("Scenario: %s\n", summary.Scenario))
	b.WriteString(fmt.Sprintf("Duration: %s\n", summary.Duration.Round(time.Millisecond)))

	passed, failed, skipped := summary.Counts()
	b.WriteString(fmt.Sprintf("Steps:    %s  %s  %s",
		successStyle.Render(fmt.Sprintf("%d passed", passed)),
		errorStyle.Render(fmt.Sprintf("%d failed", failed)),
		warningStyle.Render(fmt.Sprintf("%d skipped", skipped))))

	if l.level >= LogLevelVerbose && len(summary.Steps) > 0 {
		b.WriteString("\n")
		for _, step := range summary.Steps {
			b.WriteString(fmt.Sprintf("\n  %s %s", statusBadge(step.Status), step.Name))
		}
	}

	if summary.Error != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Error Details:"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(salmonPink).Render(summary.Error))
	}

	fmt.Fprintln(l.writer)
	fmt.Fprintln(l.writer, summaryBoxStyle.Render(b.String()))
}

func statusBadge(status string) string {
	switch status {
	case statusSuccess:
		return successStyle.Render("✓ SUCCESS")
	case statusFailed:
		return errorStyle.Render("✗ FAILED")
	case statusSkipped:
		return warningStyle.Render("- SKIPPED")
	default:
		return status
	}
}

// ParseLogLevel converts a verbosity name to LogLevel, defaulting to normal.
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}
