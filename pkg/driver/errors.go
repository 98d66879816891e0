package driver

import "errors"

var (
	// ErrNoSuchElement means a lookup matched nothing in the active context.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement means an element handle no longer refers to a live node.
	ErrStaleElement = errors.New("stale element reference")
	// ErrNoSuchWindow means a window handle no longer resolves.
	ErrNoSuchWindow = errors.New("no such window")
	// ErrNoSuchFrame means the referenced frame does not exist in the active context.
	ErrNoSuchFrame = errors.New("no such frame")
	// ErrDisconnected means the connection to the browser is gone.
	ErrDisconnected = errors.New("browser connection lost")
)

// IsAbsence reports whether err only says that something is not there (yet),
// as opposed to the engine or its connection failing.
func IsAbsence(err error) bool {
	return errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrStaleElement) ||
		errors.Is(err, ErrNoSuchFrame)
}
