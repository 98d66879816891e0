package pwdriver

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Element wraps a Playwright locator pinned to one match.
// Playwright re-resolves the locator on every call, so an element that
// disappears surfaces as ErrNoSuchElement rather than a stale handle.
type Element struct {
	l         playwright.Locator
	loc       driver.Locator
	connected func() bool
}

var _ driver.Element = (*Element)(nil)

func (e *Element) Click() error {
	return e.wrap("click", e.l.Click())
}

func (e *Element) Clear() error {
	return e.wrap("clear", e.l.Clear())
}

// SendKeys types text one key at a time so that key handlers on the page fire.
func (e *Element) SendKeys(text string) error {
	return e.wrap("type", e.l.PressSequentially(text))
}

func (e *Element) IsSelected() (bool, error) {
	checked, err := e.l.IsChecked()
	return checked, e.wrap("read checked state", err)
}

func (e *Element) IsDisplayed() (bool, error) {
	visible, err := e.l.IsVisible()
	return visible, e.wrap("read visibility", err)
}

func (e *Element) IsEnabled() (bool, error) {
	enabled, err := e.l.IsEnabled()
	return enabled, e.wrap("read enabled state", err)
}

func (e *Element) Text() (string, error) {
	text, err := e.l.InnerText()
	return text, e.wrap("read text", err)
}

func (e *Element) SelectByVisibleText(text string) error {
	chosen, err := e.l.SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{text},
	})
	if err != nil {
		return e.wrap("select", err)
	}
	if len(chosen) == 0 {
		return fmt.Errorf("option %q of %s: %w", text, e.loc, driver.ErrNoSuchElement)
	}
	return nil
}

// wrap maps element failures; an action timeout means the element went away.
func (e *Element) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%s %s: %w", op, e.loc, driver.ErrNoSuchElement)
	default:
		return fmt.Errorf("%s %s: %w", op, e.loc, mapErr(err, e.connected))
	}
}
