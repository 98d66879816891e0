package lookup

import (
	"context"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/window"
)

var (
	searchFrame   = driver.FrameIndex(0)
	campaignScope = driver.ID("campaignScope")
	campaignName  = driver.ID("lksrch")
	searchButton  = driver.Name("go")
)

// SearchFrame is the search section at the top of the lookup pop-up.
type SearchFrame struct {
	s Session
}

// NewSearchFrame enters the pop-up's search frame. The pop-up must already be
// the active window.
func NewSearchFrame(ctx context.Context, s Session) (*SearchFrame, error) {
	if _, err := s.Windows().DescendIntoFrame(ctx, searchFrame); err != nil {
		return nil, err
	}
	return &SearchFrame{s: s}, nil
}

// SearchTheCampaign filters by scope, searches for name and returns to the
// first window. The pop-up stays open.
func (f *SearchFrame) SearchTheCampaign(ctx context.Context, name, scope string) (window.Context, error) {
	if err := f.setCampaignScope(ctx, scope); err != nil {
		return f.s.Windows().Active(), err
	}
	return f.SearchTheCampaignByName(ctx, name)
}

// SearchTheCampaignByName searches for name in the current scope and returns
// to the first window.
func (f *SearchFrame) SearchTheCampaignByName(ctx context.Context, name string) (window.Context, error) {
	if err := f.run(ctx, name, ""); err != nil {
		return f.s.Windows().Active(), err
	}
	return f.s.Windows().ReturnToRoot(ctx)
}

// run fills the search form and submits it, staying inside the frame.
func (f *SearchFrame) run(ctx context.Context, name, scope string) error {
	if scope != "" {
		if err := f.setCampaignScope(ctx, scope); err != nil {
			return err
		}
	}
	if err := f.setCampaignName(ctx, name); err != nil {
		return err
	}
	return f.clickSearch(ctx)
}

func (f *SearchFrame) setCampaignScope(ctx context.Context, scope string) error {
	return actions.SelectByVisibleText(ctx, f.s, campaignScope, scope)
}

func (f *SearchFrame) setCampaignName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, campaignName, name)
}

func (f *SearchFrame) clickSearch(ctx context.Context) error {
	return actions.Click(ctx, f.s, searchButton)
}
