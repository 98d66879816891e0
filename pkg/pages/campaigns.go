package pages

import (
	"context"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/pages/lookup"
)

var (
	campaignNameField    = driver.ID("cpn1")
	campaignActiveBox    = driver.ID("cpn16")
	campaignParentLookup = driver.ID("Parent_lkwgt")
	campaignNameDisplay  = driver.ID("cpn1_ileinner")
	campaignParentShown  = driver.ID("Parent_ileinner")
)

// CampaignHome is the Campaigns tab.
type CampaignHome struct {
	viewLinks
	s Session
}

var (
	_ NewRecordOpener[*CampaignForm] = (*CampaignHome)(nil)
	_ ViewLinkOpener                 = (*CampaignHome)(nil)
)

func newCampaignHome(ctx context.Context, s Session) (*CampaignHome, error) {
	if err := landmark(ctx, s, "campaigns home", newButton); err != nil {
		return nil, err
	}
	return &CampaignHome{viewLinks: viewLinks{s: s}, s: s}, nil
}

// ClickNewButton opens the campaign creation form.
func (h *CampaignHome) ClickNewButton(ctx context.Context) (*CampaignForm, error) {
	if err := actions.Click(ctx, h.s, newButton); err != nil {
		return nil, err
	}
	return newCampaignForm(ctx, h.s)
}

// Campaign holds the fields the campaign form accepts.
type Campaign struct {
	Name   string `yaml:"name"`
	Active bool   `yaml:"active"`
	// Parent is looked up by exact name within ParentScope, when set.
	Parent      string `yaml:"parent"`
	ParentScope string `yaml:"parent_scope"`
}

// CampaignForm is the campaign creation and edit form.
type CampaignForm struct {
	s Session
}

func newCampaignForm(ctx context.Context, s Session) (*CampaignForm, error) {
	if err := landmark(ctx, s, "campaign form", campaignNameField); err != nil {
		return nil, err
	}
	return &CampaignForm{s: s}, nil
}

func (f *CampaignForm) SetName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, campaignNameField, name)
}

// SetActive checks or unchecks the Active box.
func (f *CampaignForm) SetActive(ctx context.Context, active bool) error {
	return actions.Toggle(ctx, f.s, campaignActiveBox, active)
}

// OpenParentLookup clicks the parent campaign lookup icon and returns the pop-up.
func (f *CampaignForm) OpenParentLookup(ctx context.Context) (*lookup.Popup, error) {
	d, err := f.s.Driver()
	if err != nil {
		return nil, err
	}
	handles, err := d.WindowHandles()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	if err := actions.Click(ctx, f.s, campaignParentLookup); err != nil {
		return nil, err
	}
	return lookup.Open(ctx, f.s, len(handles))
}

// SetParentCampaign picks the parent campaign through the lookup pop-up.
func (f *CampaignForm) SetParentCampaign(ctx context.Context, name, scope string) error {
	popup, err := f.OpenParentLookup(ctx)
	if err != nil {
		return err
	}
	if _, err := popup.PickCampaign(ctx, name, scope); err != nil {
		return err
	}
	return nil
}

// Fill writes c into the form, including the parent lookup.
func (f *CampaignForm) Fill(ctx context.Context, c Campaign) error {
	if err := f.SetName(ctx, c.Name); err != nil {
		return err
	}
	if err := f.SetActive(ctx, c.Active); err != nil {
		return err
	}
	if c.Parent != "" {
		return f.SetParentCampaign(ctx, c.Parent, c.ParentScope)
	}
	return nil
}

// Save submits the form and returns the campaign's detail screen.
func (f *CampaignForm) Save(ctx context.Context) (*CampaignDetail, error) {
	if err := actions.Click(ctx, f.s, saveButton); err != nil {
		return nil, err
	}
	if err := landmark(ctx, f.s, "campaign detail", campaignNameDisplay); err != nil {
		return nil, err
	}
	return &CampaignDetail{s: f.s}, nil
}

// CampaignDetail is a saved campaign's detail screen.
type CampaignDetail struct {
	s Session
}

func (d *CampaignDetail) Name(ctx context.Context) (string, error) {
	return actions.ReadText(ctx, d.s, campaignNameDisplay)
}

func (d *CampaignDetail) ParentCampaign(ctx context.Context) (string, error) {
	return actions.ReadText(ctx, d.s, campaignParentShown)
}
