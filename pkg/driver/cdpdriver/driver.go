package cdpdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/entrhq/crmpilot/pkg/driver"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Driver drives one Chrome instance through chromedp.
type Driver struct {
	mu sync.Mutex

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	opts          Options

	tabs  map[string]tab
	order []string

	active string
	frames []driver.FrameRef
	quit   bool
}

var _ driver.Driver = (*Driver)(nil)

// Launch starts Chrome and attaches to its first tab.
func Launch(ctx context.Context, opts Options) (*Driver, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// The browser outlives the launch call, so only the caller's values are kept
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
	)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	first := string(chromedp.FromContext(browserCtx).Target.TargetID)
	return &Driver{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		opts:          opts,
		tabs:          map[string]tab{first: {ctx: browserCtx}},
		order:         []string{first},
		active:        first,
	}, nil
}

// sync attaches to page targets opened by the application and forgets
// closed ones, keeping discovery order.
func (d *Driver) sync() error {
	ctx, cancel := context.WithTimeout(d.browserCtx, d.opts.ActionTimeout)
	defer cancel()
	infos, err := chromedp.Targets(ctx)
	if err != nil {
		return d.mapErr(d.browserCtx, err)
	}

	live := make(map[string]bool, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		h := string(info.TargetID)
		live[h] = true
		if _, ok := d.tabs[h]; ok {
			continue
		}
		tabCtx, tabCancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(info.TargetID))
		if err := chromedp.Run(tabCtx); err != nil {
			tabCancel()
			continue
		}
		d.tabs[h] = tab{ctx: tabCtx, cancel: tabCancel}
		d.order = append(d.order, h)
	}

	kept := d.order[:0]
	for _, h := range d.order {
		if live[h] {
			kept = append(kept, h)
			continue
		}
		if t := d.tabs[h]; t.cancel != nil {
			t.cancel()
		}
		delete(d.tabs, h)
	}
	d.order = kept
	return nil
}

func (d *Driver) activeTab() (context.Context, error) {
	if d.quit {
		return nil, driver.ErrDisconnected
	}
	t, ok := d.tabs[d.active]
	if !ok {
		return nil, fmt.Errorf("window %s: %w", d.active, driver.ErrNoSuchWindow)
	}
	return t.ctx, nil
}

// run executes fn against tab within timeout and maps protocol failures.
func (d *Driver) run(tabCtx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	return d.mapErr(tabCtx, chromedp.Run(ctx, chromedp.ActionFunc(fn)))
}

func (d *Driver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabCtx, err := d.activeTab()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(tabCtx, d.opts.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", d.mapErr(tabCtx, err))
	}
	d.frames = nil
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabCtx, err := d.activeTab()
	if err != nil {
		return "", err
	}
	var url string
	err = d.run(tabCtx, d.opts.ActionTimeout, func(ctx context.Context) error {
		return chromedp.Location(&url).Do(ctx)
	})
	return url, err
}

func (d *Driver) FindElement(loc driver.Locator) (driver.Element, error) {
	els, err := d.FindElements(loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, driver.ErrNoSuchElement)
	}
	return els[0], nil
}

func (d *Driver) FindElements(loc driver.Locator) ([]driver.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabCtx, err := d.activeTab()
	if err != nil {
		return nil, err
	}

	var els []driver.Element
	err = d.run(tabCtx, d.opts.ActionTimeout, func(ctx context.Context) error {
		doc, err := d.scope(ctx)
		if err != nil {
			return err
		}
		objs, err := find(ctx, doc, loc)
		if err != nil {
			return err
		}
		for _, obj := range objs {
			els = append(els, &Element{d: d, tab: tabCtx, obj: obj, loc: loc})
		}
		return nil
	})
	return els, err
}

// scope resolves the document of the current frame.
func (d *Driver) scope(ctx context.Context) (runtime.RemoteObjectID, error) {
	res, exc, err := runtime.Evaluate("document").Do(ctx)
	if err := scriptErr(exc, err); err != nil {
		return "", err
	}
	doc := res.ObjectID
	for _, ref := range d.frames {
		if doc, err = enterFrame(ctx, doc, ref); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func enterFrame(ctx context.Context, doc runtime.RemoteObjectID, ref driver.FrameRef) (runtime.RemoteObjectID, error) {
	var next runtime.RemoteObjectID
	if ref.Locator != nil {
		els, err := find(ctx, doc, *ref.Locator)
		if err != nil {
			return "", err
		}
		if len(els) > 0 {
			if next, err = callObject(ctx, els[0], contentDocumentFn); err != nil {
				return "", err
			}
		}
	} else {
		call, err := invocation(frameByIndexFn, ref.Index)
		if err != nil {
			return "", err
		}
		if next, err = callObject(ctx, doc, wrap(call)); err != nil {
			return "", err
		}
	}
	if next == "" {
		return "", fmt.Errorf("%s: %w", ref, driver.ErrNoSuchFrame)
	}
	return next, nil
}

// find returns a remote reference for every element matching loc under doc.
func find(ctx context.Context, doc runtime.RemoteObjectID, loc driver.Locator) ([]runtime.RemoteObjectID, error) {
	by, value := lookupArgs(loc)
	call, err := invocation(findFn, by, value)
	if err != nil {
		return nil, err
	}

	var n int
	if err := callValue(ctx, doc, wrap(call+".length"), &n); err != nil {
		return nil, err
	}
	objs := make([]runtime.RemoteObjectID, 0, n)
	for i := 0; i < n; i++ {
		obj, err := callObject(ctx, doc, wrap(call+"["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		// The node may have gone between counting and fetching
		if obj != "" {
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

func callValue(ctx context.Context, obj runtime.RemoteObjectID, fn string, out any) error {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj).
		WithReturnByValue(true).
		Do(ctx)
	if err := scriptErr(exc, err); err != nil {
		return err
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(res.Value), out)
}

// callObject returns the object produced by fn, or "" for null and undefined.
func callObject(ctx context.Context, obj runtime.RemoteObjectID, fn string) (runtime.RemoteObjectID, error) {
	res, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj).Do(ctx)
	if err := scriptErr(exc, err); err != nil {
		return "", err
	}
	if res.Type != runtime.TypeObject || res.Subtype == runtime.SubtypeNull {
		return "", nil
	}
	return res.ObjectID, nil
}

func scriptErr(exc *runtime.ExceptionDetails, err error) error {
	if err != nil {
		return err
	}
	if exc == nil {
		return nil
	}
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}
	return fmt.Errorf("page script failed: %s", msg)
}

func (d *Driver) WindowHandles() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return nil, driver.ErrDisconnected
	}
	if err := d.sync(); err != nil {
		return nil, err
	}
	return append([]string(nil), d.order...), nil
}

func (d *Driver) WindowHandle() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.activeTab(); err != nil {
		return "", err
	}
	return d.active, nil
}

func (d *Driver) SwitchToWindow(handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return driver.ErrDisconnected
	}
	if err := d.sync(); err != nil {
		return err
	}
	t, ok := d.tabs[handle]
	if !ok {
		return fmt.Errorf("window %s: %w", handle, driver.ErrNoSuchWindow)
	}
	d.active = handle
	d.frames = nil
	_ = d.run(d.browserCtx, d.opts.ActionTimeout, func(ctx context.Context) error {
		return target.ActivateTarget(chromedp.FromContext(t.ctx).Target.TargetID).Do(ctx)
	})
	return nil
}

func (d *Driver) SwitchToFrame(ref driver.FrameRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabCtx, err := d.activeTab()
	if err != nil {
		return err
	}
	err = d.run(tabCtx, d.opts.ActionTimeout, func(ctx context.Context) error {
		doc, err := d.scope(ctx)
		if err != nil {
			return err
		}
		_, err = enterFrame(ctx, doc, ref)
		return err
	})
	if err != nil {
		return err
	}
	d.frames = append(d.frames, ref)
	return nil
}

func (d *Driver) SwitchToDefaultContent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.activeTab(); err != nil {
		return err
	}
	d.frames = nil
	return nil
}

// Quit closes every tab and the browser.
func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return nil
	}
	d.quit = true

	for _, t := range d.tabs {
		if t.cancel != nil {
			t.cancel()
		}
	}
	err := chromedp.Cancel(d.browserCtx)
	d.browserCancel()
	d.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// mapErr translates protocol failures into driver errors.
func (d *Driver) mapErr(tabCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if d.quit || d.browserCtx.Err() != nil {
		return fmt.Errorf("%w: %v", driver.ErrDisconnected, err)
	}
	if driver.IsAbsence(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Could not find object with given id"),
		strings.Contains(msg, "Cannot find context with specified id"),
		strings.Contains(msg, "Cannot find default execution context"):
		return fmt.Errorf("%w: %v", driver.ErrStaleElement, err)
	case strings.Contains(msg, "No target with given id"), tabCtx.Err() != nil:
		return fmt.Errorf("%w: %v", driver.ErrNoSuchWindow, err)
	}
	return err
}
