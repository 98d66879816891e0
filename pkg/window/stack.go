// Package window tracks the browser windows and frames a session moves
// through, so a caller can always get back to the first window it saw.
package window

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gobwas/glob"

	"github.com/entrhq/crmpilot/pkg/driver"
	"github.com/entrhq/crmpilot/pkg/logging"
	"github.com/entrhq/crmpilot/pkg/wait"
)

// Session is what the stack needs from a session handle.
type Session interface {
	Driver() (driver.Driver, error)
	Waiter() *wait.Waiter
	Logger() *logging.Logger
}

var (
	// ErrStaleWindowReference matches every *StaleReferenceError.
	ErrStaleWindowReference = errors.New("stale window reference")
	// ErrNotInitialized is returned by switches attempted before Initialize.
	ErrNotInitialized = errors.New("window stack not initialized")
	// ErrNoMatchingWindow is returned when no known window matches a pattern.
	ErrNoMatchingWindow = errors.New("no matching window")
)

// StaleReferenceError reports a captured window handle that no longer resolves.
// The stack does not recover on its own; call Initialize again.
type StaleReferenceError struct {
	Handle string
	Err    error
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("window %q is no longer open: %v", e.Handle, e.Err)
}

func (e *StaleReferenceError) Is(target error) bool {
	return target == ErrStaleWindowReference
}

func (e *StaleReferenceError) Unwrap() error {
	return e.Err
}

// State is the stack's position in its state machine.
type State int

const (
	Uninitialized State = iota
	RootActive
	ChildActive
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case RootActive:
		return "root active"
	case ChildActive:
		return "child active"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Context describes the active browsing context: a window and the frames
// descended into within it, outermost first.
type Context struct {
	Window string
	Frames []driver.FrameRef
}

func (c Context) String() string {
	s := c.Window
	for _, f := range c.Frames {
		s += " > " + f.String()
	}
	return s
}

// Stack records the windows a session has discovered, in discovery order,
// and which one is active. It is not safe for concurrent use; each session
// owns one.
type Stack struct {
	sess  Session
	order []string
	known map[string]struct{}

	active string
	frames []driver.FrameRef
}

// NewStack returns an uninitialized stack bound to sess.
func NewStack(sess Session) *Stack {
	return &Stack{sess: sess, known: make(map[string]struct{})}
}

// State reports the current state.
func (s *Stack) State() State {
	switch {
	case len(s.order) == 0:
		return Uninitialized
	case s.Depth() == 0:
		return RootActive
	default:
		return ChildActive
	}
}

// Depth is the nesting level of the active context: one for a window other
// than the root plus one per frame descended into.
func (s *Stack) Depth() int {
	depth := len(s.frames)
	if len(s.order) > 0 && s.active != s.order[0] {
		depth++
	}
	return depth
}

// Root returns the first-discovered window handle.
func (s *Stack) Root() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

// Active returns the active browsing context.
func (s *Stack) Active() Context {
	return Context{Window: s.active, Frames: append([]driver.FrameRef(nil), s.frames...)}
}

// Handles returns the known window handles in discovery order.
func (s *Stack) Handles() []string {
	return append([]string(nil), s.order...)
}

// Knows reports whether handle was present at the last Initialize.
func (s *Stack) Knows(handle string) bool {
	_, ok := s.known[handle]
	return ok
}

// Initialize captures the open windows and activates the most recently
// discovered one. Windows seen by an earlier Initialize keep their place, so
// the root survives repeated captures for as long as it stays open.
func (s *Stack) Initialize(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return s.Active(), err
	}
	d, err := s.sess.Driver()
	if err != nil {
		return s.Active(), err
	}
	handles, err := d.WindowHandles()
	if err != nil {
		return s.Active(), fmt.Errorf("list windows: %w", err)
	}
	if len(handles) == 0 {
		return s.Active(), fmt.Errorf("list windows: %w", driver.ErrNoSuchWindow)
	}

	open := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		open[h] = struct{}{}
	}
	order := make([]string, 0, len(handles))
	known := make(map[string]struct{}, len(handles))
	for _, h := range s.order {
		if _, ok := open[h]; ok {
			order = append(order, h)
			known[h] = struct{}{}
		}
	}
	for _, h := range handles {
		if _, ok := known[h]; !ok {
			order = append(order, h)
			known[h] = struct{}{}
		}
	}
	s.order, s.known = order, known

	last := order[len(order)-1]
	if err := s.switchWindow(d, last); err != nil {
		return s.Active(), err
	}
	s.sess.Logger().Debugf("initialized with %d windows, active %s (%s)", len(order), last, s.State())
	return s.Active(), nil
}

// ReturnToRoot activates the first-discovered window without closing the one
// that was active. Calling it again while the root is active does nothing.
func (s *Stack) ReturnToRoot(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return s.Active(), err
	}
	root, ok := s.Root()
	if !ok {
		return s.Active(), ErrNotInitialized
	}
	if s.active == root && len(s.frames) == 0 {
		return s.Active(), nil
	}
	d, err := s.sess.Driver()
	if err != nil {
		return s.Active(), err
	}
	if err := s.switchWindow(d, root); err != nil {
		return s.Active(), err
	}
	s.sess.Logger().Debugf("returned to root %s", root)
	return s.Active(), nil
}

// ReturnToWindow leaves every frame and targets the active window's top-level document.
func (s *Stack) ReturnToWindow(ctx context.Context) (Context, error) {
	if err := ctx.Err(); err != nil {
		return s.Active(), err
	}
	if s.State() == Uninitialized {
		return s.Active(), ErrNotInitialized
	}
	if len(s.frames) == 0 {
		return s.Active(), nil
	}
	d, err := s.sess.Driver()
	if err != nil {
		return s.Active(), err
	}
	if err := s.switchWindow(d, s.active); err != nil {
		return s.Active(), err
	}
	return s.Active(), nil
}

// DescendIntoFrame waits until ref can be entered from the active context and
// enters it. The set of known windows is unchanged.
func (s *Stack) DescendIntoFrame(ctx context.Context, ref driver.FrameRef) (Context, error) {
	if s.State() == Uninitialized {
		return s.Active(), ErrNotInitialized
	}
	d, err := s.sess.Driver()
	if err != nil {
		return s.Active(), err
	}
	if _, err := s.sess.Waiter().Until(ctx, d, wait.FrameAvailable(ref)); err != nil {
		if errors.Is(err, driver.ErrNoSuchWindow) {
			return s.Active(), &StaleReferenceError{Handle: s.active, Err: err}
		}
		return s.Active(), err
	}
	s.frames = append(s.frames, ref)
	s.sess.Logger().Debugf("descended into %s (depth %d)", ref, s.Depth())
	return s.Active(), nil
}

// SwitchToMatching activates the first known window, in discovery order,
// whose URL matches the glob pattern. When none matches, the previously
// active window is restored and ErrNoMatchingWindow is returned.
func (s *Stack) SwitchToMatching(ctx context.Context, pattern string) (Context, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return s.Active(), fmt.Errorf("compile window pattern %q: %w", pattern, err)
	}
	if s.State() == Uninitialized {
		return s.Active(), ErrNotInitialized
	}
	d, err := s.sess.Driver()
	if err != nil {
		return s.Active(), err
	}

	prev := s.Active()
	for _, h := range s.Handles() {
		if err := ctx.Err(); err != nil {
			return s.restoreAfter(d, prev, err)
		}
		if err := s.switchWindow(d, h); err != nil {
			if errors.Is(err, ErrStaleWindowReference) {
				continue
			}
			return s.restoreAfter(d, prev, err)
		}
		url, err := d.CurrentURL()
		if err != nil {
			return s.restoreAfter(d, prev, fmt.Errorf("read url of %s: %w", h, err))
		}
		if g.Match(url) {
			s.sess.Logger().Debugf("window %s matches %q", h, pattern)
			return s.Active(), nil
		}
	}

	if err := s.restore(d, prev); err != nil {
		return s.Active(), err
	}
	return s.Active(), fmt.Errorf("%w: %q", ErrNoMatchingWindow, pattern)
}

// restoreAfter puts prev back and returns cause. A failed restore is logged;
// cause is still what the caller sees.
func (s *Stack) restoreAfter(d driver.Driver, prev Context, cause error) (Context, error) {
	if err := s.restore(d, prev); err != nil {
		s.sess.Logger().Warnf("could not restore %s: %v", prev, err)
	}
	return s.Active(), cause
}

// restore moves the driver and the stack back to prev.
func (s *Stack) restore(d driver.Driver, prev Context) error {
	if err := s.switchWindow(d, prev.Window); err != nil {
		return err
	}
	for _, f := range prev.Frames {
		if err := d.SwitchToFrame(f); err != nil {
			return fmt.Errorf("restore %s: %w", f, err)
		}
		s.frames = append(s.frames, f)
	}
	return nil
}

// switchWindow moves the driver to handle and, on success only, updates the
// active pointer and drops the frame path.
func (s *Stack) switchWindow(d driver.Driver, handle string) error {
	if err := d.SwitchToWindow(handle); err != nil {
		if errors.Is(err, driver.ErrNoSuchWindow) {
			s.sess.Logger().Warnf("window %s is stale", handle)
			return &StaleReferenceError{Handle: handle, Err: err}
		}
		return fmt.Errorf("switch to window %s: %w", handle, err)
	}
	s.active = handle
	s.frames = nil
	return nil
}
