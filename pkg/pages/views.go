package pages

import (
	"context"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
)

var (
	viewNameField = driver.ID("fname")
	viewDevName   = driver.ID("devname")
	viewSelector  = driver.Name("fcf")
)

// ViewForm creates or edits a list view.
type ViewForm struct {
	s Session
}

func newViewForm(ctx context.Context, s Session) (*ViewForm, error) {
	if err := landmark(ctx, s, "view form", viewNameField); err != nil {
		return nil, err
	}
	return &ViewForm{s: s}, nil
}

// SetName writes the view name.
func (f *ViewForm) SetName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, viewNameField, name)
}

// SetUniqueName overwrites the API name generated from the view name.
func (f *ViewForm) SetUniqueName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, viewDevName, name)
}

// Save submits the form and returns the resulting list view.
func (f *ViewForm) Save(ctx context.Context) (*ListView, error) {
	if err := actions.Click(ctx, f.s, saveButton); err != nil {
		return nil, err
	}
	if err := landmark(ctx, f.s, "list view", viewSelector); err != nil {
		return nil, err
	}
	return &ListView{s: f.s}, nil
}

// ListView is a saved list of records.
type ListView struct {
	s Session
}

// IsRecordListed reports whether a record link named name is shown. A missing
// link is (false, nil); a broken connection is an error.
func (v *ListView) IsRecordListed(name string) (bool, error) {
	return actions.ElementPresentByLinkText(v.s, name)
}
