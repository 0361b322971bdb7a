package process

import "errors"

var (
	// ErrBadPath is returned when the executable or the working directory does not exist.
	ErrBadPath = errors.New("bad path on either file path or working dir")
	// ErrAlreadyRunning is returned by Start on a handle whose process is running.
	ErrAlreadyRunning = errors.New("process already running")
	// ErrSpent is returned by Start on a handle that already ran a process.
	// Handles are single use; build a new one with NewHandle.
	ErrSpent = errors.New("process handle already used")
	// ErrNotRunning is returned by WriteLine and Stop when no process is running.
	ErrNotRunning = errors.New("process not running")
	ErrSpawn      = errors.New("failed to spawn process")
	ErrKill       = errors.New("failed to kill process")
	ErrIO         = errors.New("failed to write process input")
)
