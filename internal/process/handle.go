package process

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Stream identifies the output stream a Line was read from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of child output, without its terminator.
type Line struct {
	Stream Stream
	Text   string
	Time   time.Time
}

// Exit is delivered once when the child process has terminated.
type Exit struct {
	Code int
	Time time.Time
	Err  error
}

// Handle drives one run of a child process.
//
// Exited receives exactly one Exit after the child has been reaped and Lines
// has been closed. Output is drained until EOF or for exitDrain after the
// exit, whichever comes first, so a descendant holding the output open cannot
// delay the notification. A handle is single use: after a stop or an exit it must be
// discarded and a new one created with NewHandle.
type Handle interface {
	Start() error
	WriteLine(text string) error
	Stop() error
	Lines() <-chan Line
	Exited() <-chan Exit
	PID() int
}

// NewHandle returns the handle variant selected by spec.Transport.
func NewHandle(spec Spec) Handle {
	if spec.Transport == TransportPTY {
		return newPTYHandle(spec)
	}
	return newPipeHandle(spec)
}

const lineBuffer = 1024

// exitDrain bounds how long output is still read once the child has exited.
const exitDrain = 500 * time.Millisecond

// lineSink is the Lines channel. Sends after close are dropped, so a reader
// still blocked on a descriptor held by a descendant cannot panic.
type lineSink struct {
	mu     sync.Mutex
	ch     chan Line
	closed bool
}

func newLineSink() *lineSink {
	return &lineSink{ch: make(chan Line, lineBuffer)}
}

func (s *lineSink) send(l Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- l
	}
}

func (s *lineSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// finish waits for the readers for at most drain, closes the output
// descriptors, then closes lines and delivers ex.
func finish(readers *sync.WaitGroup, drain time.Duration, closeOutput func(), lines *lineSink, exited chan<- Exit, ex Exit) {
	drained := make(chan struct{})
	go func() {
		readers.Wait()
		close(drained)
	}()
	t := time.NewTimer(drain)
	select {
	case <-drained:
	case <-t.C:
	}
	t.Stop()
	closeOutput()
	lines.close()
	exited <- ex
}

type handleState int

const (
	stateIdle handleState = iota
	stateRunning
	stateDone
)

func (s handleState) startable() error {
	switch s {
	case stateRunning:
		return ErrAlreadyRunning
	case stateDone:
		return ErrSpent
	default:
		return nil
	}
}

// readLines forwards r line by line until EOF or a read error.
// skip, when non-nil, drops lines it returns true for.
func readLines(r io.Reader, stream Stream, out *lineSink, skip func(string) bool) {
	br := bufio.NewReader(r)
	for {
		s, err := br.ReadString('\n')
		if s != "" {
			text := strings.TrimRight(s, "\r\n")
			if skip == nil || !skip(text) {
				out.send(Line{Stream: stream, Text: text, Time: time.Now()})
			}
		}
		if err != nil {
			return
		}
	}
}

// exitFrom converts the result of a wait into an Exit. A process killed by a
// signal reports 128+signal, like a shell would.
func exitFrom(state *os.ProcessState, err error) Exit {
	ex := Exit{Code: -1, Time: time.Now(), Err: err}
	if state == nil {
		return ex
	}
	ex.Code = state.ExitCode()
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		ex.Code = 128 + int(ws.Signal())
	}
	return ex
}
