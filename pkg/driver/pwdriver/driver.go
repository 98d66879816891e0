package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Driver drives one Chromium browser context.
type Driver struct {
	mu sync.Mutex

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	opts    Options

	handles map[playwright.Page]string
	pages   map[string]playwright.Page
	order   []string

	active string
	frame  playwright.Frame
	quit   bool
}

var _ driver.Driver = (*Driver)(nil)

// Launch starts Playwright and Chromium and opens one blank page.
func Launch(ctx context.Context, opts Options) (*Driver, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Keep Playwright's own output off the terminal
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(ms(opts.SlowMo)),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	bctx.SetDefaultTimeout(ms(opts.ActionTimeout))

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d := &Driver{
		pw:      pw,
		browser: browser,
		bctx:    bctx,
		opts:    opts,
		handles: make(map[playwright.Page]string),
		pages:   make(map[string]playwright.Page),
	}
	d.active = d.register(page)
	d.frame = page.MainFrame()

	if err := ctx.Err(); err != nil {
		_ = d.Quit()
		return nil, err
	}
	return d, nil
}

// register assigns a handle to a page seen for the first time.
func (d *Driver) register(page playwright.Page) string {
	if h, ok := d.handles[page]; ok {
		return h
	}
	h := uuid.NewString()
	d.handles[page] = h
	d.pages[h] = page
	d.order = append(d.order, h)
	return h
}

// sync picks up pages opened by the application and forgets closed ones.
func (d *Driver) sync() {
	for _, page := range d.bctx.Pages() {
		if !page.IsClosed() {
			d.register(page)
		}
	}
	kept := d.order[:0]
	for _, h := range d.order {
		page := d.pages[h]
		if page.IsClosed() {
			delete(d.pages, h)
			delete(d.handles, page)
			continue
		}
		kept = append(kept, h)
	}
	d.order = kept
}

func (d *Driver) check() error {
	if d.quit {
		return driver.ErrDisconnected
	}
	return nil
}

func (d *Driver) activePage() (playwright.Page, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	page, ok := d.pages[d.active]
	if !ok || page.IsClosed() {
		return nil, fmt.Errorf("window %s: %w", d.active, driver.ErrNoSuchWindow)
	}
	return page, nil
}

func (d *Driver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, err := d.activePage()
	if err != nil {
		return err
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigation failed: %w", mapErr(err, d.connected))
	}
	d.frame = page.MainFrame()
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, err := d.activePage()
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (d *Driver) FindElement(loc driver.Locator) (driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, err := d.locate(loc)
	if err != nil {
		return nil, err
	}
	n, err := l.Count()
	if err != nil {
		return nil, mapErr(err, d.connected)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", loc, driver.ErrNoSuchElement)
	}
	return &Element{l: l.First(), loc: loc, connected: d.connected}, nil
}

func (d *Driver) FindElements(loc driver.Locator) ([]driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, err := d.locate(loc)
	if err != nil {
		return nil, err
	}
	all, err := l.All()
	if err != nil {
		return nil, mapErr(err, d.connected)
	}
	els := make([]driver.Element, len(all))
	for i, one := range all {
		els[i] = &Element{l: one, loc: loc, connected: d.connected}
	}
	return els, nil
}

func (d *Driver) locate(loc driver.Locator) (playwright.Locator, error) {
	if _, err := d.activePage(); err != nil {
		return nil, err
	}
	if d.frame.IsDetached() {
		return nil, fmt.Errorf("current frame detached: %w", driver.ErrNoSuchFrame)
	}
	return d.frame.Locator(Selector(loc)), nil
}

func (d *Driver) WindowHandles() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	d.sync()
	return append([]string(nil), d.order...), nil
}

func (d *Driver) WindowHandle() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.activePage(); err != nil {
		return "", err
	}
	return d.active, nil
}

func (d *Driver) SwitchToWindow(handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	d.sync()
	page, ok := d.pages[handle]
	if !ok {
		return fmt.Errorf("window %s: %w", handle, driver.ErrNoSuchWindow)
	}
	d.active = handle
	d.frame = page.MainFrame()
	return nil
}

func (d *Driver) SwitchToFrame(ref driver.FrameRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.activePage(); err != nil {
		return err
	}

	var child playwright.Frame
	if ref.Locator != nil {
		l := d.frame.Locator(Selector(*ref.Locator)).First()
		n, err := l.Count()
		if err != nil {
			return mapErr(err, d.connected)
		}
		if n > 0 {
			handle, err := l.ElementHandle()
			if err != nil {
				return mapErr(err, d.connected)
			}
			child, err = handle.ContentFrame()
			if err != nil {
				return mapErr(err, d.connected)
			}
		}
	} else {
		children := d.frame.ChildFrames()
		if ref.Index >= 0 && ref.Index < len(children) {
			child = children[ref.Index]
		}
	}
	if child == nil {
		return fmt.Errorf("%s: %w", ref, driver.ErrNoSuchFrame)
	}
	d.frame = child
	return nil
}

func (d *Driver) SwitchToDefaultContent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, err := d.activePage()
	if err != nil {
		return err
	}
	d.frame = page.MainFrame()
	return nil
}

// Quit closes the context and the browser and stops Playwright.
func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return nil
	}
	d.quit = true

	var errs []error
	if err := d.bctx.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

// Selector turns a locator into a Playwright selector string.
func Selector(loc driver.Locator) string {
	if css, ok := loc.CSSSelector(); ok {
		return css
	}
	return "xpath=" + loc.XPathExpr()
}

func (d *Driver) connected() bool {
	return d.browser != nil && d.browser.IsConnected()
}

// mapErr translates Playwright failures into driver errors. A closed target
// is a closed window while the browser is still connected, and a lost
// connection otherwise. A nil connected means the browser state is unknown.
func mapErr(err error, connected func() bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTargetClosed):
		if connected != nil && connected() {
			return fmt.Errorf("%w: %v", driver.ErrNoSuchWindow, err)
		}
		return fmt.Errorf("%w: %v", driver.ErrDisconnected, err)
	default:
		return err
	}
}
