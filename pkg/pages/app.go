package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
)

var (
	contactsTab  = driver.ID("Contact_Tab")
	campaignsTab = driver.ID("Campaign_Tab")
)

// App is the logged-in application shell with its tab bar.
type App struct {
	s Session
}

// NewApp returns the shell for s.
func NewApp(s Session) *App {
	return &App{s: s}
}

// Open navigates to url and captures the window it lands in as the root.
func (a *App) Open(ctx context.Context, url string) error {
	d, err := a.s.Driver()
	if err != nil {
		return err
	}
	a.s.Logger().Infof("opening %s", url)
	if err := d.Get(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	if _, err := a.s.Windows().Initialize(ctx); err != nil {
		return err
	}
	return landmark(ctx, a.s, "application", contactsTab)
}

// GoToContacts opens the Contacts tab.
func (a *App) GoToContacts(ctx context.Context) (*ContactHome, error) {
	if err := actions.Click(ctx, a.s, contactsTab); err != nil {
		return nil, err
	}
	return newContactHome(ctx, a.s)
}

// GoToCampaigns opens the Campaigns tab.
func (a *App) GoToCampaigns(ctx context.Context) (*CampaignHome, error) {
	if err := actions.Click(ctx, a.s, campaignsTab); err != nil {
		return nil, err
	}
	return newCampaignHome(ctx, a.s)
}
