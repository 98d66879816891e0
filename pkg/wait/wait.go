// Package wait implements the polling primitive every synchronized action is
// built from: evaluate a readiness Condition against the active browsing
// context until it holds or a timeout elapses.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/crmpilot/pkg/driver"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrTimeoutExceeded matches every *TimeoutError.
var ErrTimeoutExceeded = errors.New("timeout exceeded")

// TimeoutError reports a condition that never held within its timeout.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	// LastErr is the last absence error seen while polling, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Condition)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeoutExceeded
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Policy is the default timeout and poll interval of a Waiter.
type Policy struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultPolicy returns a 30s timeout polled every 500ms.
func DefaultPolicy() Policy {
	return Policy{Timeout: DefaultTimeout, PollInterval: DefaultPollInterval}
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	return p
}

// Waiter applies a fixed Policy. It keeps no state between calls.
type Waiter struct {
	policy Policy
}

// NewWaiter returns a Waiter for p; zero fields take the defaults.
func NewWaiter(p Policy) *Waiter {
	return &Waiter{policy: p.withDefaults()}
}

// Policy returns the waiter's policy.
func (w *Waiter) Policy() Policy {
	return w.policy
}

// Until waits for c using the policy timeout.
func (w *Waiter) Until(ctx context.Context, d driver.Driver, c Condition) (driver.Element, error) {
	return AwaitCondition(ctx, d, c, w.policy.Timeout, w.policy.PollInterval)
}

// UntilWithin waits for c using timeout instead of the policy timeout.
func (w *Waiter) UntilWithin(ctx context.Context, d driver.Driver, c Condition, timeout time.Duration) (driver.Element, error) {
	return AwaitCondition(ctx, d, c, timeout, w.policy.PollInterval)
}

// AwaitCondition evaluates c immediately and then every interval until it
// holds, returning the element it matched.
//
// Absence errors from the driver count as "not yet". Any other driver error
// ends the wait and is returned as is. When timeout elapses first the result
// is a *TimeoutError; it is never returned before timeout has passed.
// Cancelling ctx ends the wait with ctx.Err().
func AwaitCondition(ctx context.Context, d driver.Driver, c Condition, timeout, interval time.Duration) (driver.Element, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("wait for %s: timeout must be positive, got %s", c, timeout)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var lastErr error
	poll := func() (driver.Element, bool, error) {
		el, ok, err := c.Evaluate(d)
		if err != nil {
			if driver.IsAbsence(err) {
				lastErr = err
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("wait for %s: %w", c, err)
		}
		return el, ok, nil
	}

	for {
		el, ok, err := poll()
		if err != nil {
			return nil, err
		}
		if ok {
			return el, nil
		}

		tick := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			tick.Stop()
			return nil, ctx.Err()
		case <-deadline.C:
			tick.Stop()
			// One last look at the deadline, as the expiry may have raced a render.
			el, ok, err := poll()
			if err != nil {
				return nil, err
			}
			if ok {
				return el, nil
			}
			return nil, &TimeoutError{Condition: c.String(), Timeout: timeout, LastErr: lastErr}
		case <-tick.C:
		}
	}
}
