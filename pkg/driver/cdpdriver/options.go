// Package cdpdriver implements driver.Driver over the Chrome DevTools
// Protocol using chromedp.
//
// Windows are page targets of one browser; a handle is the target ID.
// Lookups run as page scripts against the document of the current frame,
// and the frame path is re-resolved from the top document on every lookup
// so that a reloaded frame is picked up again.
package cdpdriver

import "time"

const (
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 720
	DefaultActionTimeout     = 5 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
)

// Options configures a launched Chrome.
type Options struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	// ActionTimeout bounds one protocol round trip for a lookup or element operation
	ActionTimeout time.Duration

	// NavigationTimeout bounds Get
	NavigationTimeout time.Duration

	// ExecPath overrides the Chrome binary; empty means search the usual locations
	ExecPath string
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
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	return o
}
