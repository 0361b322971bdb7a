package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/metrics"
)

// DefaultInterval is how long events are buffered before a flush.
const DefaultInterval = 10 * time.Second

// Channel is a live remote destination.
type Channel interface {
	ID() string
	Send(ctx context.Context, content string) error
}

// Directory supplies the live channels once resolution has completed.
type Directory interface {
	Done() <-chan struct{}
	Channels() []Channel
}

// Failure reports one (channel, batch) pair that could not be delivered.
type Failure struct {
	ChannelID string
	Batch     string
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("relay to channel %s: %v", f.ChannelID, f.Err)
}

// Message renders f as the user-visible error.
func (f Failure) Message() event.Event {
	return event.Error(fmt.Sprintf("Failure to send discord message: %v", f.Err))
}

// Relay buffers events and delivers them in batches to every channel of a Directory.
// Enqueue never blocks on network I/O.
type Relay struct {
	dir       Directory
	interval  time.Duration
	filter    *Filter
	onFailure func(Failure)
	log       *slog.Logger

	mu     sync.Mutex
	buf    []event.Event
	timer  *time.Timer
	closed bool

	// flushMu keeps batches of consecutive flushes in order.
	flushMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFilter gates events through f before they are buffered.
func WithFilter(f *Filter) Option {
	return func(r *Relay) { r.filter = f }
}

// WithFailureHandler is called for every failed (channel, batch) delivery.
func WithFailureHandler(f func(Failure)) Option {
	return func(r *Relay) { r.onFailure = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.log = l }
}

func New(dir Directory, opts ...Option) *Relay {
	r := &Relay{
		dir:      dir,
		interval: DefaultInterval,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Handle implements event.Sink: filtered events are enqueued.
func (r *Relay) Handle(e event.Event) {
	if r.filter != nil && !r.filter.Allow(e.Text) {
		return
	}
	r.Enqueue(e)
}

// Enqueue appends e to the buffer and arms the flush timer when idle.
func (r *Relay) Enqueue(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, e)
	metrics.SetRelayBuffered(len(r.buf))
	if r.closed || r.timer != nil {
		return
	}
	r.timer = time.AfterFunc(r.interval, func() {
		if err := r.Flush(r.ctx); err != nil {
			r.log.Debug("timed relay flush interrupted", "error", err)
		}
	})
}

// Pending returns the number of buffered events.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Flush waits for channel resolution, then dispatches the buffered events.
// It returns ctx.Err() if ctx ends before resolution does; the buffer is
// kept in that case.
func (r *Relay) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	select {
	case <-r.dir.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	events := r.buf
	r.buf = nil
	metrics.SetRelayBuffered(0)
	r.mu.Unlock()

	if len(events) == 0 {
		return nil
	}
	r.dispatch(ctx, Batch(events))
	return nil
}

func (r *Relay) dispatch(ctx context.Context, batches []string) {
	for _, ch := range r.dir.Channels() {
		for _, b := range batches {
			err := ch.Send(ctx, b)
			metrics.IncRelayBatch(err == nil)
			if err == nil {
				continue
			}
			f := Failure{ChannelID: ch.ID(), Batch: b, Err: err}
			r.log.Warn("relay dispatch failed", "channel", f.ChannelID, "error", err)
			if r.onFailure != nil {
				r.onFailure(f)
			}
		}
	}
}

// Close stops the timer and performs the final flush. A timed flush already
// sending is allowed to finish first. Events enqueued afterwards are buffered
// but never dispatched.
func (r *Relay) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	defer r.cancel()
	return r.Flush(ctx)
}
