package cdpdriver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/crmpilot/pkg/driver"
)

func TestLookupArgs(t *testing.T) {
	by, value := lookupArgs(driver.ID("lksrch"))
	assert.Equal(t, "css", by)
	assert.Equal(t, `[id="lksrch"]`, value)

	by, value = lookupArgs(driver.LinkText("Edit"))
	assert.Equal(t, "xpath", by)
	assert.Equal(t, `//a[normalize-space(.)="Edit"]`, value)
}

func TestInvocation(t *testing.T) {
	got, err := invocation(findFn, "css", `a[title="x"]`)
	require.NoError(t, err)
	assert.Contains(t, got, "("+findFn+").apply(this, ")
	assert.Contains(t, got, `["css","a[title=\"x\"]"]`)

	_, err = invocation(findFn, make(chan int))
	assert.Error(t, err)
}

func TestFrameByIndexUsesDirectChildren(t *testing.T) {
	got, err := invocation(frameByIndexFn, 0)
	require.NoError(t, err)
	assert.Contains(t, got, ".apply(this, [0])")
	assert.Contains(t, frameByIndexFn, "this.defaultView")
	assert.Contains(t, frameByIndexFn, "w.frames[i].document")
	assert.NotContains(t, frameByIndexFn, "querySelectorAll")
}

func TestGuarded(t *testing.T) {
	got, err := guarded(selectByTextFn, "My Campaigns")
	require.NoError(t, err)
	assert.Contains(t, got, "if (!this.isConnected) return {stale: true};")
	assert.Contains(t, got, `.apply(this, ["My Campaigns"])`)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "function() { return this.title; }", wrap("this.title"))
}

func TestOptionsDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	assert.Equal(t, DefaultViewportWidth, got.ViewportWidth)
	assert.Equal(t, DefaultViewportHeight, got.ViewportHeight)
	assert.Equal(t, DefaultActionTimeout, got.ActionTimeout)
	assert.Equal(t, DefaultNavigationTimeout, got.NavigationTimeout)

	kept := Options{ActionTimeout: time.Second, NavigationTimeout: time.Minute}.withDefaults()
	assert.Equal(t, time.Second, kept.ActionTimeout)
	assert.Equal(t, time.Minute, kept.NavigationTimeout)
}

func TestScriptErr(t *testing.T) {
	assert.NoError(t, scriptErr(nil, nil))

	boom := errors.New("boom")
	assert.Same(t, boom, scriptErr(nil, boom))
}

func TestMapErr(t *testing.T) {
	d := &Driver{browserCtx: context.Background()}
	tab := context.Background()

	assert.NoError(t, d.mapErr(tab, nil))

	stale := d.mapErr(tab, errors.New("Could not find object with given id (-32000)"))
	assert.ErrorIs(t, stale, driver.ErrStaleElement)

	gone := d.mapErr(tab, errors.New("No target with given id found (-32602)"))
	assert.ErrorIs(t, gone, driver.ErrNoSuchWindow)

	missing := fmt.Errorf("name=go: %w", driver.ErrNoSuchElement)
	assert.Same(t, missing, d.mapErr(tab, missing))

	closedTab, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.mapErr(closedTab, context.Canceled), driver.ErrNoSuchWindow)

	d.quit = true
	assert.ErrorIs(t, d.mapErr(tab, errors.New("anything")), driver.ErrDisconnected)
}

func TestQuitStateRejectsCalls(t *testing.T) {
	d := &Driver{browserCtx: context.Background(), quit: true, tabs: map[string]tab{}}

	_, err := d.WindowHandles()
	assert.ErrorIs(t, err, driver.ErrDisconnected)
	_, err = d.FindElements(driver.Name("go"))
	assert.ErrorIs(t, err, driver.ErrDisconnected)
	assert.ErrorIs(t, d.SwitchToWindow("T1"), driver.ErrDisconnected)
	assert.NoError(t, d.Quit())
}
