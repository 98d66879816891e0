package drivertest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/crmpilot/pkg/driver"
)

func TestDriverScopesLookupsToActiveFrame(t *testing.T) {
	inner := NewDocument().Add(driver.ID("lksrch"), NewElement(""))
	root := NewDocument().AddFrame(nil, inner)
	d := New("W1", "https://crm.test/", root)

	_, err := d.FindElement(driver.ID("lksrch"))
	assert.True(t, errors.Is(err, driver.ErrNoSuchElement))

	require.NoError(t, d.SwitchToFrame(driver.FrameIndex(0)))
	_, err = d.FindElement(driver.ID("lksrch"))
	assert.NoError(t, err)

	require.NoError(t, d.SwitchToDefaultContent())
	assert.Same(t, root, d.CurrentDocument())
	assert.Equal(t, []string{"frame:frame(0)", "default"}, d.Switches)
}

func TestDriverWindowLifecycle(t *testing.T) {
	d := New("W1", "https://crm.test/", NewDocument())
	d.OpenWindow("W2", "https://crm.test/lookup", NewDocument())

	handles, err := d.WindowHandles()
	require.NoError(t, err)
	assert.Equal(t, []string{"W1", "W2"}, handles)

	require.NoError(t, d.SwitchToWindow("W2"))
	d.CloseWindow("W2")

	_, err = d.WindowHandle()
	assert.True(t, errors.Is(err, driver.ErrNoSuchWindow))
	err = d.SwitchToWindow("W2")
	assert.True(t, errors.Is(err, driver.ErrNoSuchWindow))
	require.NoError(t, d.SwitchToWindow("W1"))
}

func TestDriverDisconnect(t *testing.T) {
	d := New("W1", "", NewDocument())
	d.Disconnect()

	_, err := d.FindElements(driver.LinkText("Contacts"))
	assert.True(t, errors.Is(err, driver.ErrDisconnected))
	assert.False(t, driver.IsAbsence(err))
}

func TestElementScripting(t *testing.T) {
	el := NewElement("Save").VisibleAfterPolls(2)
	for i := 0; i < 2; i++ {
		shown, err := el.IsDisplayed()
		require.NoError(t, err)
		assert.False(t, shown)
	}
	shown, err := el.IsDisplayed()
	require.NoError(t, err)
	assert.True(t, shown)

	box := NewCheckbox(false)
	require.NoError(t, box.Click())
	selected, _ := box.IsSelected()
	assert.True(t, selected)

	sel := NewSelect("All Campaigns", "My Campaigns")
	require.NoError(t, sel.SelectByVisibleText("My Campaigns"))
	assert.Equal(t, "My Campaigns", sel.Chosen())
	assert.Error(t, sel.SelectByVisibleText("Nope"))

	el.Detach()
	_, err = el.Text()
	assert.True(t, errors.Is(err, driver.ErrStaleElement))
}
