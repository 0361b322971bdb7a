package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
)

// ptyHandle runs the child inside a pseudo-terminal. The terminal merges
// stdout and stderr into one stream, reported as StreamStdout.
type ptyHandle struct {
	spec      Spec
	mu        sync.Mutex
	writeMu   sync.Mutex
	state     handleState
	cmd       *exec.Cmd
	tty       *os.File
	lastInput string
	lines     *lineSink
	exited    chan Exit
}

func newPTYHandle(spec Spec) *ptyHandle {
	return &ptyHandle{
		spec:   spec,
		lines:  newLineSink(),
		exited: make(chan Exit, 1),
	}
}

func (h *ptyHandle) Lines() <-chan Line  { return h.lines.ch }
func (h *ptyHandle) Exited() <-chan Exit { return h.exited }

func (h *ptyHandle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *ptyHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.state.startable(); err != nil {
		return err
	}

	cmd := h.spec.command()
	tty, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	h.cmd = cmd
	h.tty = tty
	h.state = stateRunning

	warmUp := h.spec.warmUp()
	started := time.Now()
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		time.Sleep(warmUp)
		readLines(tty, StreamStdout, h.lines, h.isEcho)
	}()
	go func() {
		err := cmd.Wait()
		ex := exitFrom(cmd.ProcessState, err)
		h.mu.Lock()
		h.state = stateDone
		h.mu.Unlock()
		// The reader only starts after the warm-up, the drain window follows it.
		drain := exitDrain + max(0, warmUp-time.Since(started))
		finish(&readers, drain, func() { _ = tty.Close() }, h.lines, h.exited, ex)
	}()
	return nil
}

// isEcho drops the terminal's echo of the last written input line.
func (h *ptyHandle) isEcho(text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastInput != "" && text == h.lastInput {
		h.lastInput = ""
		return true
	}
	return false
}

func (h *ptyHandle) WriteLine(text string) error {
	h.mu.Lock()
	if h.state != stateRunning {
		h.mu.Unlock()
		return ErrNotRunning
	}
	tty := h.tty
	h.lastInput = text
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := io.WriteString(tty, text+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Stop kills the session started for the child. The descriptor is closed
// once the process has been reaped and its output drained.
func (h *ptyHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateRunning {
		return ErrNotRunning
	}
	if err := killTree(h.cmd.Process.Pid); err != nil {
		return fmt.Errorf("%w: %v", ErrKill, err)
	}
	h.state = stateDone
	return nil
}
