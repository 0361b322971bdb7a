package supervisor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/process"
)

func TestResultMessages(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name  string
		got   event.Event
		text  string
		level event.Level
	}{
		{"start ok", StartMessage(nil), "Server started", event.LevelNone},
		{"start twice", StartMessage(ErrAlreadyStarted), "Server was already started", event.LevelWarn},
		{"start bad path", StartMessage(fmt.Errorf("%w: x", process.ErrBadPath)), "Couldn't start the server: Bad path on either file path or working dir", event.LevelError},
		{"start other", StartMessage(other), "Couldn't start the server: An internal error occured", event.LevelError},
		{"stop ok", StopMessage(nil), "Server stopped", event.LevelNone},
		{"stop twice", StopMessage(ErrNotStarted), "Server was already stopped", event.LevelWarn},
		{"stop other", StopMessage(other), "Couldn't stop the server: An internal error occured", event.LevelError},
		{"input not started", SendInputMessage(ErrNotStarted), "No process to send the input to", event.LevelWarn},
		{"input after exit", SendInputMessage(process.ErrNotRunning), "No process to send the input to", event.LevelWarn},
		{"input other", SendInputMessage(other), "Couldn't send input to the server: An internal error occured", event.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.got.Text)
			assert.Equal(t, tt.level, tt.got.Level)
		})
	}
}
