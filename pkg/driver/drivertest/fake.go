// Package drivertest provides an in-memory driver.Driver for tests.
//
// A Driver holds windows in the order they were opened. Each window has a
// Document; documents hold elements keyed by locator and child frames that
// are themselves documents. Elements record how they were used and can be
// scripted to become visible or enabled only after a number of polls or at a
// given time.
package drivertest

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Document is the content of a window or frame.
type Document struct {
	Elements map[driver.Locator][]*Element
	// Frames are child frames addressed by position.
	Frames []*Document
	// NamedFrames maps a frame element locator to its content.
	NamedFrames map[driver.Locator]*Document
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Elements:    make(map[driver.Locator][]*Element),
		NamedFrames: make(map[driver.Locator]*Document),
	}
}

// Add registers elements under loc and returns the document for chaining.
func (doc *Document) Add(loc driver.Locator, els ...*Element) *Document {
	doc.Elements[loc] = append(doc.Elements[loc], els...)
	return doc
}

// AddFrame appends a positional child frame. When loc is non-nil the frame is
// also reachable through its element locator.
func (doc *Document) AddFrame(loc *driver.Locator, child *Document) *Document {
	doc.Frames = append(doc.Frames, child)
	if loc != nil {
		doc.NamedFrames[*loc] = child
	}
	return doc
}

// Window is one open browser window.
type Window struct {
	Handle string
	URL    string
	Doc    *Document
}

// Driver is a scripted, in-memory driver.
type Driver struct {
	mu sync.Mutex

	windows      []*Window
	active       *Window
	frame        *Document
	disconnected bool
	quit         int

	// Switches logs every successful window or frame switch, e.g. "window:W2", "frame:frame(0)", "default".
	Switches []string
	// Visited logs every Get call.
	Visited []string
}

var _ driver.Driver = (*Driver)(nil)

// New returns a driver with one root window.
func New(rootHandle, url string, doc *Document) *Driver {
	d := &Driver{}
	d.OpenWindow(rootHandle, url, doc)
	d.active = d.windows[0]
	d.frame = doc
	return d
}

// OpenWindow adds a window without switching to it, as a pop-up would.
func (d *Driver) OpenWindow(handle, url string, doc *Document) *Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := &Window{Handle: handle, URL: url, Doc: doc}
	d.windows = append(d.windows, w)
	return w
}

// CloseWindow removes a window as if the page closed it. The driver stays
// pointed at it, so further use fails like a real engine would.
func (d *Driver) CloseWindow(handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.windows {
		if w.Handle == handle {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			return
		}
	}
}

// Disconnect makes every subsequent call fail with driver.ErrDisconnected.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnected = true
}

// QuitCount reports how many times Quit was called.
func (d *Driver) QuitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

// Active returns the handle of the active window.
func (d *Driver) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active.Handle
}

// CurrentDocument returns the document lookups are currently scoped to.
func (d *Driver) CurrentDocument() *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

func (d *Driver) check() error {
	if d.disconnected || d.quit > 0 {
		return driver.ErrDisconnected
	}
	return nil
}

func (d *Driver) window(handle string) *Window {
	for _, w := range d.windows {
		if w.Handle == handle {
			return w
		}
	}
	return nil
}

// activeAlive reports whether the active window is still open.
func (d *Driver) activeAlive() bool {
	return d.active != nil && d.window(d.active.Handle) != nil
}

func (d *Driver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if !d.activeAlive() {
		return driver.ErrNoSuchWindow
	}
	d.active.URL = url
	d.Visited = append(d.Visited, url)
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return "", err
	}
	if !d.activeAlive() {
		return "", driver.ErrNoSuchWindow
	}
	return d.active.URL, nil
}

func (d *Driver) FindElement(loc driver.Locator) (driver.Element, error) {
	els, err := d.find(loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, driver.ErrNoSuchElement)
	}
	return els[0], nil
}

func (d *Driver) FindElements(loc driver.Locator) ([]driver.Element, error) {
	els, err := d.find(loc)
	if err != nil {
		return nil, err
	}
	out := make([]driver.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (d *Driver) find(loc driver.Locator) ([]*Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	if !d.activeAlive() {
		return nil, driver.ErrNoSuchWindow
	}
	var out []*Element
	for _, el := range d.frame.Elements[loc] {
		if el.attached() {
			out = append(out, el)
		}
	}
	return out, nil
}

func (d *Driver) WindowHandles() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	handles := make([]string, len(d.windows))
	for i, w := range d.windows {
		handles[i] = w.Handle
	}
	return handles, nil
}

func (d *Driver) WindowHandle() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return "", err
	}
	if !d.activeAlive() {
		return "", driver.ErrNoSuchWindow
	}
	return d.active.Handle, nil
}

func (d *Driver) SwitchToWindow(handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	w := d.window(handle)
	if w == nil {
		return fmt.Errorf("window %q: %w", handle, driver.ErrNoSuchWindow)
	}
	d.active = w
	d.frame = w.Doc
	d.Switches = append(d.Switches, "window:"+handle)
	return nil
}

func (d *Driver) SwitchToFrame(ref driver.FrameRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if !d.activeAlive() {
		return driver.ErrNoSuchWindow
	}
	var child *Document
	if ref.Locator != nil {
		child = d.frame.NamedFrames[*ref.Locator]
	} else if ref.Index >= 0 && ref.Index < len(d.frame.Frames) {
		child = d.frame.Frames[ref.Index]
	}
	if child == nil {
		return fmt.Errorf("%s: %w", ref, driver.ErrNoSuchFrame)
	}
	d.frame = child
	d.Switches = append(d.Switches, "frame:"+ref.String())
	return nil
}

func (d *Driver) SwitchToDefaultContent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(); err != nil {
		return err
	}
	if !d.activeAlive() {
		return driver.ErrNoSuchWindow
	}
	d.frame = d.active.Doc
	d.Switches = append(d.Switches, "default")
	return nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit++
	return nil
}

// Element is a scripted element.
type Element struct {
	mu sync.Mutex

	text     string
	value    string
	selected bool
	checkbox bool
	enabled  bool
	options  []string
	choice   string

	visible     bool
	visibleAt   time.Time
	pollsBefore int
	detached    bool

	onClick func()

	clicks  int
	clears  int
	history []string
}

// NewElement returns a visible, enabled element with the given text.
func NewElement(text string) *Element {
	return &Element{text: text, visible: true, enabled: true}
}

// NewCheckbox returns a visible, enabled checkbox; clicking flips its state.
func NewCheckbox(selected bool) *Element {
	return &Element{visible: true, enabled: true, checkbox: true, selected: selected}
}

// NewSelect returns a visible, enabled select element with the given option labels.
func NewSelect(options ...string) *Element {
	return &Element{visible: true, enabled: true, options: options}
}

// Hidden makes the element invisible until Show is called.
func (e *Element) Hidden() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = false
	return e
}

// Disabled makes the element not interactable.
func (e *Element) Disabled() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	return e
}

// VisibleAfterPolls keeps the element hidden for the first n IsDisplayed calls.
func (e *Element) VisibleAfterPolls(n int) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pollsBefore = n
	return e
}

// VisibleAt keeps the element hidden until t.
func (e *Element) VisibleAt(t time.Time) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibleAt = t
	return e
}

// OnClick runs fn after every click.
func (e *Element) OnClick(fn func()) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// Show makes a hidden element visible.
func (e *Element) Show() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = true
}

// Enable makes a disabled element interactable.
func (e *Element) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
}

// Detach removes the element from its document; existing handles go stale.
func (e *Element) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
}

// Clicks reports how many times the element was clicked.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Clears reports how many times the element was cleared.
func (e *Element) Clears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clears
}

// Value returns the typed value.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Chosen returns the selected option label of a select element.
func (e *Element) Chosen() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.choice
}

// History lists the mutating calls in order, e.g. "clear", "keys:Fall2024", "click".
func (e *Element) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.history...)
}

func (e *Element) attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.detached
}

func (e *Element) Click() error {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return driver.ErrStaleElement
	}
	e.clicks++
	e.history = append(e.history, "click")
	if e.checkbox {
		e.selected = !e.selected
	}
	fn := e.onClick
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return driver.ErrStaleElement
	}
	e.clears++
	e.value = ""
	e.history = append(e.history, "clear")
	return nil
}

func (e *Element) SendKeys(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return driver.ErrStaleElement
	}
	e.value += text
	e.history = append(e.history, "keys:"+text)
	return nil
}

func (e *Element) IsSelected() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, driver.ErrStaleElement
	}
	return e.selected, nil
}

func (e *Element) IsDisplayed() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, driver.ErrStaleElement
	}
	if e.pollsBefore > 0 {
		e.pollsBefore--
		return false, nil
	}
	if !e.visibleAt.IsZero() && time.Now().Before(e.visibleAt) {
		return false, nil
	}
	return e.visible, nil
}

func (e *Element) IsEnabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, driver.ErrStaleElement
	}
	return e.enabled, nil
}

func (e *Element) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return "", driver.ErrStaleElement
	}
	return e.text, nil
}

func (e *Element) SelectByVisibleText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return driver.ErrStaleElement
	}
	for _, opt := range e.options {
		if opt == text {
			e.choice = opt
			e.history = append(e.history, "select:"+opt)
			return nil
		}
	}
	return fmt.Errorf("option %q: %w", text, driver.ErrNoSuchElement)
}
