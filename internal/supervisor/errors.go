package supervisor

import "errors"

var (
	// ErrAlreadyStarted is returned by Start while the server is running.
	ErrAlreadyStarted = errors.New("server already started")
	// ErrNotStarted is returned by Stop and SendInput when no server is running.
	ErrNotStarted = errors.New("server not started")
)
