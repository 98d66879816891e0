// Package actions wraps element interactions so that each one first waits for
// the element to be ready. Every function resolves its locator through the
// wait, so element handles never outlive a context switch.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/wait"
)

// Session is what the actions need from a session handle.
type Session interface {
	Driver() (driver.Driver, error)
	Waiter() *wait.Waiter
	Logger() *logging.Logger
}

// ErrElementNotFound matches every *NotFoundError.
var ErrElementNotFound = errors.New("element not found")

// NotFoundError reports a lookup by criterion that matched none of the candidates.
type NotFoundError struct {
	Criterion  string
	Candidates int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element matching %s among %d candidates", e.Criterion, e.Candidates)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}

// await resolves loc once cond holds.
func await(ctx context.Context, s Session, cond wait.Condition) (driver.Element, error) {
	d, err := s.Driver()
	if err != nil {
		return nil, err
	}
	el, err := s.Waiter().Until(ctx, d, cond)
	if err != nil {
		if errors.Is(err, wait.ErrTimeoutExceeded) {
			s.Logger().Warnf("%v", err)
		}
		return nil, err
	}
	return el, nil
}

// Click waits for the element to be visible and clicks it.
func Click(ctx context.Context, s Session, loc driver.Locator) error {
	el, err := await(ctx, s, wait.Visible(loc))
	if err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

// ClickWhenClickable waits for the element to be displayed and enabled and
// clicks it.
func ClickWhenClickable(ctx context.Context, s Session, loc driver.Locator) error {
	el, err := await(ctx, s, wait.Clickable(loc))
	if err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

// Type waits for the element to be visible, clears it and writes value.
func Type(ctx context.Context, s Session, loc driver.Locator, value string) error {
	el, err := await(ctx, s, wait.Visible(loc))
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	if err := el.SendKeys(value); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// Clear waits for the element to be visible and clears it.
func Clear(ctx context.Context, s Session, loc driver.Locator) error {
	el, err := await(ctx, s, wait.Visible(loc))
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	return nil
}

// Toggle waits for the element to be clickable and clicks it only if its
// selected state differs from want. Repeating a call with the same want
// performs no click.
func Toggle(ctx context.Context, s Session, loc driver.Locator, want bool) error {
	el, err := await(ctx, s, wait.Clickable(loc))
	if err != nil {
		return err
	}
	selected, err := el.IsSelected()
	if err != nil {
		return fmt.Errorf("read state of %s: %w", loc, err)
	}
	if selected == want {
		return nil
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("toggle %s: %w", loc, err)
	}
	return nil
}

// Check selects a checkbox-like element if it is not selected yet.
func Check(ctx context.Context, s Session, loc driver.Locator) error {
	return Toggle(ctx, s, loc, true)
}

// IsSelected waits for the element to be clickable and reports whether it is selected.
func IsSelected(ctx context.Context, s Session, loc driver.Locator) (bool, error) {
	el, err := await(ctx, s, wait.Clickable(loc))
	if err != nil {
		return false, err
	}
	selected, err := el.IsSelected()
	if err != nil {
		return false, fmt.Errorf("read state of %s: %w", loc, err)
	}
	return selected, nil
}

// ReadText waits for the element to be visible and returns its text.
func ReadText(ctx context.Context, s Session, loc driver.Locator) (string, error) {
	el, err := await(ctx, s, wait.Visible(loc))
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", loc, err)
	}
	return text, nil
}

// SelectByVisibleText waits for a select element to be visible and picks the
// option labelled text.
func SelectByVisibleText(ctx context.Context, s Session, loc driver.Locator, text string) error {
	el, err := await(ctx, s, wait.Visible(loc))
	if err != nil {
		return err
	}
	if err := el.SelectByVisibleText(text); err != nil {
		return fmt.Errorf("select %q in %s: %w", text, loc, err)
	}
	return nil
}

// SelectByExactText returns the first candidate whose text equals text.
// Candidates are assumed rendered already; nothing is awaited.
func SelectByExactText(candidates []driver.Element, text string) (driver.Element, error) {
	for _, el := range candidates {
		got, err := el.Text()
		if err != nil {
			if driver.IsAbsence(err) {
				continue
			}
			return nil, fmt.Errorf("read candidate text: %w", err)
		}
		if got == text {
			return el, nil
		}
	}
	return nil, &NotFoundError{Criterion: fmt.Sprintf("text %q", text), Candidates: len(candidates)}
}

// Pause blocks for d. It is reserved for delays that have no observable
// readiness signal; prefer a wait.Condition everywhere else.
func Pause(ctx context.Context, s Session, d time.Duration) error {
	s.Logger().Debugf("pausing %s", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
