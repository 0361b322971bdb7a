package resolver

import (
	"fmt"

	"github.com/loykin/servermgr/internal/event"
)

// Message renders f as the user-visible warning, or error once retries are exhausted.
func Message(f Failure) event.Event {
	var reason string
	switch f.Code {
	case NotFound:
		reason = "because it couldn't be found"
	case ApplicationError:
		reason = "due to an application error"
	default:
		reason = "due to an error on Discord side"
	}
	if f.RetriesLeft > 0 {
		return event.Warn(fmt.Sprintf("Couldn't get channel %s %s. Retrying %d more times.", f.ID, reason, f.RetriesLeft))
	}
	return event.Error(fmt.Sprintf("Couldn't get channel %s %s. Retries were exhausted.", f.ID, reason))
}
