package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loykin/servermgr/internal/metrics"
)

// Source identifies the producer of a command.
type Source int

const (
	SourceConsole Source = iota
	SourceChat
	SourceHTTP
	// SourceTrigger marks responses synthesized by the custom command matcher.
	SourceTrigger
)

func (s Source) String() string {
	switch s {
	case SourceConsole:
		return "console"
	case SourceChat:
		return "chat"
	case SourceHTTP:
		return "http"
	case SourceTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

const DefaultCapacity = 64

var (
	// ErrFull is returned by TrySubmit when the queue has no room.
	ErrFull = errors.New("command queue full")
	// ErrClosed is returned once the consumer has stopped.
	ErrClosed = errors.New("command queue closed")
)

// Command is one line of input for the child process.
type Command struct {
	Source Source
	Text   string
}

// Writer is the single consumer of the queue.
type Writer interface {
	SendInput(text string) error
}

// Queue funnels commands from every producer into one Writer, one at a time.
type Queue struct {
	w        Writer
	ch       chan Command
	done     chan struct{}
	onResult func(Command, error)
	log      *slog.Logger
}

type Option func(*Queue)

func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Command, n)
		}
	}
}

// WithResultHandler is called by the consumer after every write.
func WithResultHandler(f func(Command, error)) Option {
	return func(q *Queue) { q.onResult = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

func NewQueue(w Writer, opts ...Option) *Queue {
	q := &Queue{
		w:    w,
		ch:   make(chan Command, DefaultCapacity),
		done: make(chan struct{}),
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Submit enqueues text, waiting for room until ctx ends.
func (q *Queue) Submit(ctx context.Context, src Source, text string) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- Command{Source: src, Text: text}:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues text without blocking.
func (q *Queue) TrySubmit(src Source, text string) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- Command{Source: src, Text: text}:
		return nil
	default:
		return ErrFull
	}
}

// Run consumes commands until ctx ends. It must be called once.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-q.ch:
			err := q.w.SendInput(c.Text)
			metrics.IncCommand(c.Source.String(), err == nil)
			if err != nil {
				q.log.Warn("command not delivered", "source", c.Source.String(), "error", err)
			} else {
				q.log.Debug("command delivered", "source", c.Source.String())
			}
			if q.onResult != nil {
				q.onResult(c, err)
			}
		}
	}
}
