// Package pwdriver implements driver.Driver on top of playwright-go.
//
// Windows are the pages of a single browser context; each page gets a
// stable handle when it is first seen. Frames are tracked as the playwright
// Frame that lookups are scoped to.
package pwdriver

import "time"

const (
	// DefaultViewportWidth is the default browser viewport width
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the default browser viewport height
	DefaultViewportHeight = 720

	// DefaultActionTimeout bounds a single click or keystroke sequence once
	// the element has been found ready.
	DefaultActionTimeout = 5 * time.Second
)

// Options configures a launched browser.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	ViewportWidth  int
	ViewportHeight int

	// SlowMo delays every browser operation, for watching a run
	SlowMo time.Duration

	// ActionTimeout bounds individual element operations
	ActionTimeout time.Duration

	// Install downloads the driver and Chromium before launching
	Install bool
}

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	return o
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
