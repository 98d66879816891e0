package cdpdriver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Element is a remote reference to a DOM node in one tab.
type Element struct {
	d   *Driver
	tab context.Context
	obj runtime.RemoteObjectID
	loc driver.Locator
}

var _ driver.Element = (*Element)(nil)

type guardedResult struct {
	Stale bool            `json:"stale"`
	Value json.RawMessage `json:"value"`
}

// eval runs fn on the element and decodes its result into out.
func (e *Element) eval(ctx context.Context, out any, fn string, args ...any) error {
	decl, err := guarded(fn, args...)
	if err != nil {
		return err
	}
	var res guardedResult
	if err := callValue(ctx, e.obj, decl, &res); err != nil {
		return err
	}
	if res.Stale {
		return fmt.Errorf("%s: %w", e.loc, driver.ErrStaleElement)
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

func (e *Element) do(op string, fn func(ctx context.Context) error) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.quit {
		return driver.ErrDisconnected
	}
	if err := e.d.run(e.tab, e.d.opts.ActionTimeout, fn); err != nil {
		return fmt.Errorf("%s %s: %w", op, e.loc, err)
	}
	return nil
}

// Click presses and releases the left mouse button over the element centre.
func (e *Element) Click() error {
	return e.do("click", func(ctx context.Context) error {
		var point [2]float64
		if err := e.eval(ctx, &point, clickPointFn); err != nil {
			return err
		}
		x, y := point[0], point[1]
		if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	})
}

func (e *Element) Clear() error {
	return e.do("clear", func(ctx context.Context) error {
		return e.eval(ctx, nil, clearFn)
	})
}

// SendKeys focuses the element and dispatches a key event per character.
func (e *Element) SendKeys(text string) error {
	return e.do("type", func(ctx context.Context) error {
		if err := e.eval(ctx, nil, focusFn); err != nil {
			return err
		}
		return chromedp.KeyEvent(text).Do(ctx)
	})
}

func (e *Element) IsSelected() (bool, error) {
	var selected bool
	err := e.do("read checked state", func(ctx context.Context) error {
		return e.eval(ctx, &selected, selectedFn)
	})
	return selected, err
}

func (e *Element) IsDisplayed() (bool, error) {
	var displayed bool
	err := e.do("read visibility", func(ctx context.Context) error {
		return e.eval(ctx, &displayed, displayedFn)
	})
	return displayed, err
}

func (e *Element) IsEnabled() (bool, error) {
	var enabled bool
	err := e.do("read enabled state", func(ctx context.Context) error {
		return e.eval(ctx, &enabled, enabledFn)
	})
	return enabled, err
}

func (e *Element) Text() (string, error) {
	var text string
	err := e.do("read text", func(ctx context.Context) error {
		return e.eval(ctx, &text, textFn)
	})
	return text, err
}

func (e *Element) SelectByVisibleText(text string) error {
	return e.do("select", func(ctx context.Context) error {
		var found bool
		if err := e.eval(ctx, &found, selectByTextFn, text); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("option %q: %w", text, driver.ErrNoSuchElement)
		}
		return nil
	})
}
