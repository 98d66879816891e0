// Package pages models the CRM screens as page objects. Each method that
// moves to another screen returns a new page object for the destination.
//
// Screens do not share a base type. They expose what they can do through
// small capability interfaces and reuse behaviour by embedding helper values.
package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/wait"
	"github.com/entrhq/crmpilot/pkg/window"
)

// Session is what page objects need from a session handle.
type Session interface {
	actions.Session
	Windows() *window.Stack
}

// NewRecordOpener is a screen whose "New" button opens a creation form of type F.
type NewRecordOpener[F any] interface {
	ClickNewButton(ctx context.Context) (F, error)
}

// ViewLinkOpener is a screen with list view links.
type ViewLinkOpener interface {
	ClickCreateNewViewLink(ctx context.Context) (*ViewForm, error)
	ClickEditViewLink(ctx context.Context) (*ViewForm, error)
}

var (
	newButton         = driver.Name("new")
	saveButton        = driver.Name("save")
	createNewViewLink = driver.LinkText("Create New View")
	editViewLink      = driver.LinkText("Edit")
)

// viewLinks implements ViewLinkOpener for any home screen.
type viewLinks struct {
	s Session
}

func (v viewLinks) ClickCreateNewViewLink(ctx context.Context) (*ViewForm, error) {
	if err := actions.Click(ctx, v.s, createNewViewLink); err != nil {
		return nil, err
	}
	return newViewForm(ctx, v.s)
}

func (v viewLinks) ClickEditViewLink(ctx context.Context) (*ViewForm, error) {
	if err := actions.Click(ctx, v.s, editViewLink); err != nil {
		return nil, err
	}
	return newViewForm(ctx, v.s)
}

// landmark waits for an element that marks a screen as loaded.
func landmark(ctx context.Context, s Session, screen string, loc driver.Locator) error {
	d, err := s.Driver()
	if err != nil {
		return err
	}
	if _, err := s.Waiter().Until(ctx, d, wait.Visible(loc)); err != nil {
		return fmt.Errorf("%s did not load: %w", screen, err)
	}
	s.Logger().Debugf("on %s", screen)
	return nil
}
