package pages

import (
	"context"

	"github.com/entrhq/crmpilot/pkg/actions"
	"github.com/entrhq/crmpilot/pkg/driver"
)

var (
	contactFirstName   = driver.ID("name_firstcon2")
	contactLastName    = driver.ID("name_lastcon2")
	contactEmail       = driver.ID("con15")
	contactNameDisplay = driver.ID("con2_ileinner")
	contactEmailShown  = driver.ID("con15_ileinner")
)

// ContactHome is the Contacts tab.
type ContactHome struct {
	viewLinks
	s Session
}

var (
	_ NewRecordOpener[*ContactForm] = (*ContactHome)(nil)
	_ ViewLinkOpener                = (*ContactHome)(nil)
)

func newContactHome(ctx context.Context, s Session) (*ContactHome, error) {
	if err := landmark(ctx, s, "contacts home", newButton); err != nil {
		return nil, err
	}
	return &ContactHome{viewLinks: viewLinks{s: s}, s: s}, nil
}

// ClickNewButton opens the contact creation form. The button renders before
// its handler is attached, so it waits until the button is enabled.
func (h *ContactHome) ClickNewButton(ctx context.Context) (*ContactForm, error) {
	if err := actions.ClickWhenClickable(ctx, h.s, newButton); err != nil {
		return nil, err
	}
	return newContactForm(ctx, h.s)
}

// Contact holds the fields the contact form accepts.
type Contact struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// ContactForm is the contact creation and edit form.
type ContactForm struct {
	s Session
}

func newContactForm(ctx context.Context, s Session) (*ContactForm, error) {
	if err := landmark(ctx, s, "contact form", contactLastName); err != nil {
		return nil, err
	}
	return &ContactForm{s: s}, nil
}

func (f *ContactForm) SetFirstName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, contactFirstName, name)
}

func (f *ContactForm) SetLastName(ctx context.Context, name string) error {
	return actions.Type(ctx, f.s, contactLastName, name)
}

func (f *ContactForm) SetEmail(ctx context.Context, email string) error {
	return actions.Type(ctx, f.s, contactEmail, email)
}

// Fill writes every non-empty field of c.
func (f *ContactForm) Fill(ctx context.Context, c Contact) error {
	for _, field := range []struct {
		value string
		set   func(context.Context, string) error
	}{
		{c.FirstName, f.SetFirstName},
		{c.LastName, f.SetLastName},
		{c.Email, f.SetEmail},
	} {
		if field.value == "" {
			continue
		}
		if err := field.set(ctx, field.value); err != nil {
			return err
		}
	}
	return nil
}

// Save submits the form and returns the new contact's detail screen.
func (f *ContactForm) Save(ctx context.Context) (*ContactDetail, error) {
	if err := actions.Click(ctx, f.s, saveButton); err != nil {
		return nil, err
	}
	if err := landmark(ctx, f.s, "contact detail", contactNameDisplay); err != nil {
		return nil, err
	}
	return &ContactDetail{s: f.s}, nil
}

// ContactDetail is a saved contact's detail screen.
type ContactDetail struct {
	s Session
}

// Name returns the displayed full name.
func (d *ContactDetail) Name(ctx context.Context) (string, error) {
	return actions.ReadText(ctx, d.s, contactNameDisplay)
}

// Email returns the displayed email address.
func (d *ContactDetail) Email(ctx context.Context) (string, error) {
	return actions.ReadText(ctx, d.s, contactEmailShown)
}
