package process

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// pipeHandle runs the child with redirected stdin/stdout/stderr pipes.
// stdout and stderr are read on separate goroutines.
type pipeHandle struct {
	spec    Spec
	mu      sync.Mutex
	writeMu sync.Mutex
	state   handleState
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   *lineSink
	exited  chan Exit
}

func newPipeHandle(spec Spec) *pipeHandle {
	return &pipeHandle{
		spec:   spec,
		lines:  newLineSink(),
		exited: make(chan Exit, 1),
	}
}

func (h *pipeHandle) Lines() <-chan Line  { return h.lines.ch }
func (h *pipeHandle) Exited() <-chan Exit { return h.exited }

func (h *pipeHandle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *pipeHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.state.startable(); err != nil {
		return err
	}

	cmd := h.spec.command()
	configureSysProcAttr(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	h.cmd = cmd
	h.stdin = stdin
	h.state = stateRunning

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		readLines(stdout, StreamStdout, h.lines, nil)
	}()
	go func() {
		defer readers.Done()
		readLines(stderr, StreamStderr, h.lines, nil)
	}()
	go func() {
		// The pipes are closed by finish, cmd.Wait would close them early.
		ex := exitFrom(cmd.Process.Wait())
		h.mu.Lock()
		h.state = stateDone
		h.mu.Unlock()
		_ = stdin.Close()
		finish(&readers, exitDrain, func() {
			_ = stdout.Close()
			_ = stderr.Close()
		}, h.lines, h.exited, ex)
	}()
	return nil
}

func (h *pipeHandle) WriteLine(text string) error {
	h.mu.Lock()
	running := h.state == stateRunning
	stdin := h.stdin
	h.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Stop kills the child together with its process group and descendants.
func (h *pipeHandle) Stop() error {
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
