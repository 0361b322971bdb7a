package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/history"
	"github.com/loykin/servermgr/internal/metrics"
	"github.com/loykin/servermgr/internal/process"
)

// Supervisor owns the child process handle and its lifecycle state.
//
// Lock Hierarchy (to prevent deadlocks):
// 1. inputMu - serializes writes to the child's input
// 2. mu (state lock) - protects state, handle and run bookkeeping
//
// Output is published on the event Sink from the pump goroutine; Sink
// implementations must not block.
type Supervisor struct {
	mu        sync.Mutex
	inputMu   sync.Mutex
	spec      process.Spec
	newHandle func(process.Spec) process.Handle
	handle    process.Handle
	state     State
	runID     string
	pid       int
	startedAt time.Time
	stopped   bool

	out     event.Sink
	history history.Sink
	onExit  func(process.Exit, bool)
	log     *slog.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithHandleFactory replaces process.NewHandle, mostly for tests.
func WithHandleFactory(f func(process.Spec) process.Handle) Option {
	return func(s *Supervisor) { s.newHandle = f }
}

// WithHistory records start, stop and exit events to sink.
func WithHistory(sink history.Sink) Option {
	return func(s *Supervisor) { s.history = sink }
}

// WithExitHook is called after every exit of the child, once the exit event
// has been published. stopped reports whether the exit was caused by Stop.
func WithExitHook(f func(ex process.Exit, stopped bool)) Option {
	return func(s *Supervisor) { s.onExit = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// New creates a supervisor in the Ready state. Events are published to out.
func New(spec process.Spec, out event.Sink, opts ...Option) *Supervisor {
	s := &Supervisor{
		spec:      spec,
		newHandle: process.NewHandle,
		state:     StateReady,
		out:       out,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.handle = s.newHandle(spec)
	metrics.SetCurrentState(StateReady.String(), true)
	return s
}

func (s *Supervisor) Spec() process.Spec { return s.spec }

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the pid of the running child, or 0.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return 0
	}
	return s.pid
}

// Status is a point-in-time snapshot used by the management listener.
type Status struct {
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Path      string    `json:"path"`
	WorkDir   string    `json:"work_dir"`
	Transport string    `json:"transport"`
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:     s.state.String(),
		Path:      s.spec.Path,
		WorkDir:   s.spec.WorkDir,
		Transport: string(s.spec.Transport),
	}
	if s.state == StateRunning {
		st.PID = s.pid
		st.RunID = s.runID
		st.StartedAt = s.startedAt
	}
	return st
}

// Start spawns the child process.
func (s *Supervisor) Start() error {
	if err := s.spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case StateEnded:
		s.handle = s.newHandle(s.spec)
		s.setStateLocked(StateReady)
	}

	h := s.handle
	if err := h.Start(); err != nil {
		// a failed spawn may leave the handle half initialised
		s.handle = s.newHandle(s.spec)
		s.mu.Unlock()
		s.log.Error("server spawn failed", "path", s.spec.Path, "error", err)
		return err
	}
	s.runID = uuid.NewString()
	s.pid = h.PID()
	s.startedAt = time.Now()
	s.stopped = false
	s.setStateLocked(StateRunning)
	evt := s.historyEventLocked(history.EventStart, 0, s.startedAt, "")
	s.mu.Unlock()

	metrics.IncStart()
	s.log.Info("server started", "pid", evt.PID, "run_id", evt.RunID, "transport", s.spec.Transport)
	s.persist(evt)
	go s.pump(h, evt.RunID)
	return nil
}

// Stop forcefully terminates the child and its descendants.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	h := s.handle
	s.stopped = true
	if err := h.Stop(); err != nil {
		s.stopped = false
		s.mu.Unlock()
		s.log.Error("server stop failed", "pid", s.pid, "error", err)
		return err
	}
	s.setStateLocked(StateEnded)
	evt := s.historyEventLocked(history.EventStop, 0, time.Now(), "")
	s.mu.Unlock()

	metrics.IncStop()
	s.log.Info("server stopped", "pid", evt.PID, "run_id", evt.RunID)
	s.persist(evt)
	return nil
}

// SendInput writes text followed by a line break to the child's input.
// Concurrent callers never interleave partial lines.
func (s *Supervisor) SendInput(text string) error {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	h := s.handle
	s.mu.Unlock()

	return h.WriteLine(text)
}

// pump forwards output of one run and finalises it on exit.
func (s *Supervisor) pump(h process.Handle, runID string) {
	for line := range h.Lines() {
		src := event.SourceStdout
		if line.Stream == process.StreamStderr {
			src = event.SourceStderr
		}
		metrics.IncOutputLine(line.Stream.String())
		s.out.Handle(event.Output(src, line.Text, line.Time))
	}
	ex := <-h.Exited()

	s.mu.Lock()
	current := s.handle == h
	if current && s.state == StateRunning {
		s.setStateLocked(StateEnded)
	}
	stopped := s.stopped
	msg := fmt.Sprintf("Server process exited with exit code %d.", ex.Code)
	evt := s.historyEventLocked(history.EventExit, ex.Code, ex.Time, msg)
	evt.RunID = runID
	s.mu.Unlock()

	metrics.IncExit(ex.Code)
	s.log.Info("server exited", "run_id", runID, "code", ex.Code, "stopped", stopped)
	s.out.Handle(event.LogAt(msg, ex.Time))
	s.persist(evt)

	if s.onExit != nil && current {
		s.onExit(ex, stopped)
	}
}

// setStateLocked updates state; s.mu must be held.
func (s *Supervisor) setStateLocked(newState State) {
	oldState := s.state
	s.state = newState
	metrics.SetCurrentState(oldState.String(), false)
	metrics.SetCurrentState(newState.String(), true)
}

func (s *Supervisor) historyEventLocked(t history.EventType, code int, at time.Time, msg string) history.Event {
	return history.Event{
		Type:       t,
		RunID:      s.runID,
		Path:       s.spec.Path,
		PID:        s.pid,
		ExitCode:   code,
		OccurredAt: at.UTC(),
		Message:    msg,
	}
}

const historyTimeout = 5 * time.Second

func (s *Supervisor) persist(evt history.Event) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := s.history.Send(ctx, evt); err != nil {
		s.log.Warn("history sink failed", "event", evt.Type, "error", err)
	}
}
