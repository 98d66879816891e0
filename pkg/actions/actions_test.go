package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/driver/drivertest"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/wait"
)

var errClosed = errors.New("session closed")

type stubSession struct {
	d      driver.Driver
	w      *wait.Waiter
	closed bool
}

func (s *stubSession) Driver() (driver.Driver, error) {
	if s.closed {
		return nil, errClosed
	}
	return s.d, nil
}
func (s *stubSession) Waiter() *wait.Waiter     { return s.w }
func (s *stubSession) Logger() *logging.Logger { return logging.Discard() }

func newSession(doc *drivertest.Document) (*stubSession, *drivertest.Driver) {
	d := drivertest.New("W1", "https://crm.test/", doc)
	return &stubSession{
		d: d,
		w: wait.NewWaiter(wait.Policy{Timeout: 100 * time.Millisecond, PollInterval: 2 * time.Millisecond}),
	}, d
}

func TestClickWaitsForVisibility(t *testing.T) {
	btn := drivertest.NewElement("New").VisibleAfterPolls(3)
	s, _ := newSession(drivertest.NewDocument().Add(driver.Name("new"), btn))

	require.NoError(t, Click(context.Background(), s, driver.Name("new")))
	assert.Equal(t, 1, btn.Clicks())
}

func TestClickTimesOutOnHiddenElement(t *testing.T) {
	btn := drivertest.NewElement("New").Hidden()
	s, _ := newSession(drivertest.NewDocument().Add(driver.Name("new"), btn))

	err := Click(context.Background(), s, driver.Name("new"))
	assert.True(t, errors.Is(err, wait.ErrTimeoutExceeded))
	assert.Contains(t, err.Error(), "visible(name=new)")
	assert.Equal(t, 0, btn.Clicks())
}

func TestTypeClearsBeforeWriting(t *testing.T) {
	field := drivertest.NewElement("")
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("lksrch"), field))
	require.NoError(t, field.SendKeys("stale"))

	require.NoError(t, Type(context.Background(), s, driver.ID("lksrch"), "Fall2024"))
	require.NoError(t, Type(context.Background(), s, driver.ID("lksrch"), "Fall2024"))

	assert.Equal(t, "Fall2024", field.Value())
	assert.Equal(t, []string{"keys:stale", "clear", "keys:Fall2024", "clear", "keys:Fall2024"}, field.History())
}

func TestClear(t *testing.T) {
	field := drivertest.NewElement("")
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("cpn1"), field))
	require.NoError(t, field.SendKeys("x"))

	require.NoError(t, Clear(context.Background(), s, driver.ID("cpn1")))
	assert.Equal(t, "", field.Value())
	assert.Equal(t, 1, field.Clears())
}

func TestClickWhenClickableWaitsForEnabled(t *testing.T) {
	button := drivertest.NewElement("New").Disabled()
	s, _ := newSession(drivertest.NewDocument().Add(driver.Name("new"), button))

	err := ClickWhenClickable(context.Background(), s, driver.Name("new"))
	assert.True(t, errors.Is(err, wait.ErrTimeoutExceeded))
	assert.Equal(t, 0, button.Clicks())

	button.Enable()
	require.NoError(t, ClickWhenClickable(context.Background(), s, driver.Name("new")))
	assert.Equal(t, 1, button.Clicks())
}

func TestToggleIsIdempotent(t *testing.T) {
	for _, want := range []bool{true, false} {
		box := drivertest.NewCheckbox(!want)
		s, _ := newSession(drivertest.NewDocument().Add(driver.ID("IsActive"), box))

		require.NoError(t, Toggle(context.Background(), s, driver.ID("IsActive"), want))
		require.Equal(t, 1, box.Clicks())

		require.NoError(t, Toggle(context.Background(), s, driver.ID("IsActive"), want))
		assert.Equal(t, 1, box.Clicks(), "second toggle must not click")

		selected, err := box.IsSelected()
		require.NoError(t, err)
		assert.Equal(t, want, selected)
	}
}

func TestToggleWaitsForClickable(t *testing.T) {
	box := drivertest.NewCheckbox(false).Disabled()
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("IsActive"), box))

	err := Check(context.Background(), s, driver.ID("IsActive"))
	assert.True(t, errors.Is(err, wait.ErrTimeoutExceeded))
	assert.Contains(t, err.Error(), "clickable")
	assert.Equal(t, 0, box.Clicks())
}

func TestIsSelected(t *testing.T) {
	box := drivertest.NewCheckbox(true)
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("IsActive"), box))

	selected, err := IsSelected(context.Background(), s, driver.ID("IsActive"))
	require.NoError(t, err)
	assert.True(t, selected)
}

func TestReadText(t *testing.T) {
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("cpn1_ileinner"), drivertest.NewElement("Fall2024")))

	text, err := ReadText(context.Background(), s, driver.ID("cpn1_ileinner"))
	require.NoError(t, err)
	assert.Equal(t, "Fall2024", text)
}

func TestSelectByVisibleText(t *testing.T) {
	scope := drivertest.NewSelect("All Campaigns", "My Campaigns")
	s, _ := newSession(drivertest.NewDocument().Add(driver.ID("campaignScope"), scope))

	require.NoError(t, SelectByVisibleText(context.Background(), s, driver.ID("campaignScope"), "My Campaigns"))
	assert.Equal(t, "My Campaigns", scope.Chosen())

	err := SelectByVisibleText(context.Background(), s, driver.ID("campaignScope"), "Nobody's Campaigns")
	assert.Error(t, err)
}

func TestSelectByExactText(t *testing.T) {
	alpha := drivertest.NewElement("Alpha")
	beta := drivertest.NewElement("Beta")
	gamma := drivertest.NewElement("Gamma")
	candidates := []driver.Element{alpha, beta, gamma}

	got, err := SelectByExactText(candidates, "Beta")
	require.NoError(t, err)
	assert.Same(t, beta, got)

	_, err = SelectByExactText(candidates, "Delta")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrElementNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 3, nf.Candidates)
}

func TestSelectByExactTextFirstMatchWins(t *testing.T) {
	first := drivertest.NewElement("Beta")
	second := drivertest.NewElement("Beta")

	got, err := SelectByExactText([]driver.Element{drivertest.NewElement("Beta "), first, second}, "Beta")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestSelectByExactTextSkipsStaleCandidates(t *testing.T) {
	stale := drivertest.NewElement("Beta")
	stale.Detach()
	live := drivertest.NewElement("Beta")

	got, err := SelectByExactText([]driver.Element{stale, live}, "Beta")
	require.NoError(t, err)
	assert.Same(t, live, got)
}

func TestElementPresentByLinkText(t *testing.T) {
	s, d := newSession(drivertest.NewDocument().Add(driver.LinkText("Fall2024"), drivertest.NewElement("Fall2024")))

	present, err := ElementPresentByLinkText(s, "Fall2024")
	require.NoError(t, err)
	assert.True(t, present)

	present, err = ElementPresentByLinkText(s, "Winter2030")
	require.NoError(t, err, "absence is not a hard failure")
	assert.False(t, present)

	d.Disconnect()
	present, err = ElementPresentByLinkText(s, "Fall2024")
	assert.False(t, present)
	assert.True(t, errors.Is(err, driver.ErrDisconnected))
}

func TestIsElementPresent(t *testing.T) {
	s, _ := newSession(drivertest.NewDocument().
		Add(driver.ID("shown"), drivertest.NewElement("")).
		Add(driver.ID("hidden"), drivertest.NewElement("").Hidden()))
	ctx := context.Background()

	present, err := IsElementPresent(ctx, s, driver.ID("shown"))
	require.NoError(t, err)
	assert.True(t, present)

	present, err = IsElementPresent(ctx, s, driver.ID("hidden"))
	require.NoError(t, err)
	assert.False(t, present)

	present, err = IsElementPresent(ctx, s, driver.ID("missing"))
	require.NoError(t, err)
	assert.False(t, present)
}

func TestActionsFailOnClosedSession(t *testing.T) {
	s, _ := newSession(drivertest.NewDocument())
	s.closed = true

	assert.ErrorIs(t, Click(context.Background(), s, driver.Name("new")), errClosed)
	_, err := ElementPresentByLinkText(s, "x")
	assert.ErrorIs(t, err, errClosed)
}

func TestPause(t *testing.T) {
	s, _ := newSession(drivertest.NewDocument())

	start := time.Now()
	require.NoError(t, Pause(context.Background(), s, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, s, time.Hour), context.Canceled)
}
