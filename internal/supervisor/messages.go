package supervisor

import (
	"errors"

	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/process"
)

// StartMessage converts the result of Start into the user-visible event.
func StartMessage(err error) event.Event {
	switch {
	case err == nil:
		return event.Log("Server started")
	case errors.Is(err, ErrAlreadyStarted):
		return event.Warn("Server was already started")
	case errors.Is(err, process.ErrBadPath):
		return event.Error("Couldn't start the server: Bad path on either file path or working dir")
	default:
		return event.Error("Couldn't start the server: An internal error occured")
	}
}

// StopMessage converts the result of Stop into the user-visible event.
func StopMessage(err error) event.Event {
	switch {
	case err == nil:
		return event.Log("Server stopped")
	case errors.Is(err, ErrNotStarted):
		return event.Warn("Server was already stopped")
	default:
		return event.Error("Couldn't stop the server: An internal error occured")
	}
}

// SendInputMessage converts the result of SendInput into the user-visible event.
func SendInputMessage(err error) event.Event {
	switch {
	case err == nil:
		return event.Log("Input sent to process")
	case errors.Is(err, ErrNotStarted), errors.Is(err, process.ErrNotRunning):
		return event.Warn("No process to send the input to")
	default:
		return event.Error("Couldn't send input to the server: An internal error occured")
	}
}
