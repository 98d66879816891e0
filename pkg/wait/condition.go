package wait

import (
	"fmt"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Kind names a readiness predicate.
type Kind string

const (
	KindVisible        Kind = "visible"
	KindClickable      Kind = "clickable"
	KindPresent        Kind = "present"
	KindFrameAvailable Kind = "frame available"
	KindCustom         Kind = "custom"
)

// Condition is a readiness predicate over the driver's active context.
//
// Evaluating a condition returns the element it was about, or nil for
// conditions with no single target. ok is false while the condition does not
// hold yet.
type Condition struct {
	Kind   Kind
	Target string
	eval   func(d driver.Driver) (el driver.Element, ok bool, err error)
}

func (c Condition) String() string {
	if c.Target == "" {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s(%s)", c.Kind, c.Target)
}

// Evaluate runs the predicate once.
func (c Condition) Evaluate(d driver.Driver) (driver.Element, bool, error) {
	if c.eval == nil {
		return nil, false, fmt.Errorf("condition %s has no predicate", c)
	}
	return c.eval(d)
}

// Visible holds once the element matched by loc is displayed.
func Visible(loc driver.Locator) Condition {
	return Condition{
		Kind:   KindVisible,
		Target: loc.String(),
		eval: func(d driver.Driver) (driver.Element, bool, error) {
			el, err := d.FindElement(loc)
			if err != nil {
				return nil, false, err
			}
			shown, err := el.IsDisplayed()
			if err != nil || !shown {
				return nil, false, err
			}
			return el, true, nil
		},
	}
}

// Clickable holds once the element matched by loc is displayed and enabled.
func Clickable(loc driver.Locator) Condition {
	return Condition{
		Kind:   KindClickable,
		Target: loc.String(),
		eval: func(d driver.Driver) (driver.Element, bool, error) {
			el, err := d.FindElement(loc)
			if err != nil {
				return nil, false, err
			}
			shown, err := el.IsDisplayed()
			if err != nil || !shown {
				return nil, false, err
			}
			enabled, err := el.IsEnabled()
			if err != nil || !enabled {
				return nil, false, err
			}
			return el, true, nil
		},
	}
}

// Present holds once an element matched by loc is in the document, shown or not.
func Present(loc driver.Locator) Condition {
	return Condition{
		Kind:   KindPresent,
		Target: loc.String(),
		eval: func(d driver.Driver) (driver.Element, bool, error) {
			el, err := d.FindElement(loc)
			if err != nil {
				return nil, false, err
			}
			return el, true, nil
		},
	}
}

// FrameAvailable holds once the driver could switch into ref. The switch is
// the condition's side effect: when it holds, the active context is the frame.
func FrameAvailable(ref driver.FrameRef) Condition {
	return Condition{
		Kind:   KindFrameAvailable,
		Target: ref.String(),
		eval: func(d driver.Driver) (driver.Element, bool, error) {
			if err := d.SwitchToFrame(ref); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		},
	}
}

// Func wraps an arbitrary predicate.
func Func(name string, fn func(d driver.Driver) (bool, error)) Condition {
	return Condition{
		Kind:   KindCustom,
		Target: name,
		eval: func(d driver.Driver) (driver.Element, bool, error) {
			ok, err := fn(d)
			return nil, ok, err
		},
	}
}
