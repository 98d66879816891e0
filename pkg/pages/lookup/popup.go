package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/wait"
	"github.com/entrhq/crmpilot/pkg/window"
)

var (
	// popupURL matches the lookup page whatever record type it serves.
	popupURL = "*/_ui/common/data/LookupPage*"

	resultsFrame = driver.FrameBy(driver.ID("resultsFrame"))
	resultLinks  = driver.XPath("//div[@class='listRelatedObject lookupBlock']//tr/th/a")
)

// Popup is an open lookup pop-up.
type Popup struct {
	s     Session
	modal *ModalWindow
}

// Open waits for a pop-up to join the before windows already open and makes
// the window showing the lookup page active. Other windows opened alongside
// it are ignored.
func Open(ctx context.Context, s Session, before int) (*Popup, error) {
	modal := NewModalWindow(s)
	if err := modal.AwaitOpened(ctx, before); err != nil {
		return nil, fmt.Errorf("lookup window did not open: %w", err)
	}
	if _, err := modal.Init(ctx); err != nil {
		return nil, err
	}
	active, err := awaitLookupPage(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("lookup page did not load: %w", err)
	}
	s.Logger().Debugf("lookup open in %s", active)
	return &Popup{s: s, modal: modal}, nil
}

// awaitLookupPage polls until a known window shows the lookup page and
// activates it. A new window can report about:blank until it has navigated.
func awaitLookupPage(ctx context.Context, s Session) (window.Context, error) {
	d, err := s.Driver()
	if err != nil {
		return window.Context{}, err
	}
	stack := s.Windows()
	cond := wait.Func("window at "+popupURL, func(driver.Driver) (bool, error) {
		if _, err := stack.SwitchToMatching(ctx, popupURL); err != nil {
			if errors.Is(err, window.ErrNoMatchingWindow) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if _, err := s.Waiter().Until(ctx, d, cond); err != nil {
		return stack.Active(), err
	}
	return stack.Active(), nil
}

// Search enters the pop-up's search frame.
func (p *Popup) Search(ctx context.Context) (*SearchFrame, error) {
	return NewSearchFrame(ctx, p.s)
}

// PickCampaign searches for name within scope, clicks the result whose text is
// exactly name and returns to the first window. An empty scope keeps the
// pop-up's default.
func (p *Popup) PickCampaign(ctx context.Context, name, scope string) (window.Context, error) {
	stack := p.s.Windows()

	search, err := p.Search(ctx)
	if err != nil {
		return stack.Active(), err
	}
	if err := search.run(ctx, name, scope); err != nil {
		return stack.Active(), err
	}

	if _, err := stack.ReturnToWindow(ctx); err != nil {
		return stack.Active(), err
	}
	if _, err := stack.DescendIntoFrame(ctx, resultsFrame); err != nil {
		return stack.Active(), err
	}

	d, err := p.s.Driver()
	if err != nil {
		return stack.Active(), err
	}
	if _, err := p.s.Waiter().Until(ctx, d, wait.Visible(resultLinks)); err != nil {
		return stack.Active(), fmt.Errorf("no lookup results for %q: %w", name, err)
	}
	candidates, err := d.FindElements(resultLinks)
	if err != nil {
		return stack.Active(), fmt.Errorf("list lookup results: %w", err)
	}
	link, err := actions.SelectByExactText(candidates, name)
	if err != nil {
		return stack.Active(), err
	}
	if err := link.Click(); err != nil {
		return stack.Active(), fmt.Errorf("pick %q: %w", name, err)
	}

	// Picking a result closes the pop-up.
	return p.modal.SwitchToParentWithoutClose(ctx)
}

// Leave returns to the first window without picking anything.
func (p *Popup) Leave(ctx context.Context) (window.Context, error) {
	return p.modal.SwitchToParentWithoutClose(ctx)
}
