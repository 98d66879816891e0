// Package lookup drives the lookup pop-up window used to pick a related
// record, such as a campaign's parent campaign.
package lookup

import (
	"context"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/wait"
	"github.com/entrhq/crmpilot/pkg/window"
)

// Session is what the lookup objects need from a session handle.
type Session interface {
	actions.Session
	Windows() *window.Stack
}

// ModalWindow moves between the pop-up and the window that opened it.
type ModalWindow struct {
	s Session
}

// NewModalWindow returns a ModalWindow over the session's window stack.
func NewModalWindow(s Session) *ModalWindow {
	return &ModalWindow{s: s}
}

// Init captures the open windows and activates the newest one, the pop-up.
func (m *ModalWindow) Init(ctx context.Context) (window.Context, error) {
	return m.s.Windows().Initialize(ctx)
}

// SwitchToParentWithoutClose activates the first window again and leaves the
// pop-up open.
func (m *ModalWindow) SwitchToParentWithoutClose(ctx context.Context) (window.Context, error) {
	return m.s.Windows().ReturnToRoot(ctx)
}

// AwaitOpened blocks until more than before windows are open.
func (m *ModalWindow) AwaitOpened(ctx context.Context, before int) error {
	d, err := m.s.Driver()
	if err != nil {
		return err
	}
	cond := wait.Func(fmt.Sprintf("more than %d windows", before), func(d driver.Driver) (bool, error) {
		handles, err := d.WindowHandles()
		if err != nil {
			return false, err
		}
		return len(handles) > before, nil
	})
	_, err = m.s.Waiter().Until(ctx, d, cond)
	return err
}
