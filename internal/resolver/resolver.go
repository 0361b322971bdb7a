package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/servermgr/internal/metrics"
	"github.com/loykin/servermgr/internal/relay"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 2 * time.Second
)

var (
	// ErrNotFound marks a channel that does not exist. The id is pruned.
	ErrNotFound = errors.New("channel not found")
	// ErrBadRequest marks an id the remote rejects as malformed. The id is pruned.
	ErrBadRequest = errors.New("bad channel request")
)

// Client turns a channel id into a live channel.
// Errors wrapping ErrNotFound or ErrBadRequest are terminal; anything else is retried.
type Client interface {
	ResolveChannel(ctx context.Context, id string) (relay.Channel, error)
}

// Pruner removes a permanently invalid id from persisted configuration.
type Pruner interface {
	RemoveChannel(id string) error
}

// FailCode classifies a resolution failure.
type FailCode int

const (
	NotFound FailCode = iota
	ApplicationError
	TransientError
)

func (c FailCode) String() string {
	switch c {
	case NotFound:
		return "not_found"
	case ApplicationError:
		return "application_error"
	default:
		return "transient_error"
	}
}

// Failure is reported once per failed attempt.
type Failure struct {
	ID          string
	Code        FailCode
	RetriesLeft int
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("resolve channel %s: %s (retries left %d): %v", f.ID, f.Code, f.RetriesLeft, f.Err)
}

// Resolver resolves the configured channel ids once and exposes the live set.
// It implements relay.Directory.
type Resolver struct {
	client    Client
	pruner    Pruner
	onFailure func(Failure)
	attempts  int
	delay     time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	ids      []string
	channels []relay.Channel

	once sync.Once
	done chan struct{}
}

type Option func(*Resolver)

// WithRetry overrides the attempts per id and the delay between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(r *Resolver) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if delay >= 0 {
			r.delay = delay
		}
	}
}

// WithFailureHandler is called synchronously for every failed attempt.
func WithFailureHandler(f func(Failure)) Option {
	return func(r *Resolver) { r.onFailure = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a resolver for ids. pruner may be nil.
func New(client Client, ids []string, pruner Pruner, opts ...Option) *Resolver {
	r := &Resolver{
		client:   client,
		pruner:   pruner,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		log:      slog.Default(),
		ids:      append([]string(nil), ids...),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Done is closed once every id has been processed, or after Skip.
func (r *Resolver) Done() <-chan struct{} { return r.done }

// Skip completes resolution without resolving anything. Used when the
// remote connection could not be opened.
func (r *Resolver) Skip() { r.finish() }

func (r *Resolver) finish() {
	r.once.Do(func() {
		metrics.SetResolvedChannels(len(r.Channels()))
		close(r.done)
	})
}

// Channels returns the live channels resolved so far, in configuration order.
func (r *Resolver) Channels() []relay.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]relay.Channel(nil), r.channels...)
}

// IDs returns the remaining configured ids (pruned ones removed).
func (r *Resolver) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// Run resolves ids sequentially. It returns early, still completing
// resolution, when ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	defer r.finish()
	for _, id := range r.IDs() {
		if ctx.Err() != nil {
			return
		}
		r.resolve(ctx, id)
	}
}

func (r *Resolver) resolve(ctx context.Context, id string) {
	retriesLeft := r.attempts - 1
	for {
		ch, err := r.client.ResolveChannel(ctx, id)
		if err == nil {
			r.mu.Lock()
			r.channels = append(r.channels, ch)
			r.mu.Unlock()
			r.log.Info("channel resolved", "channel", id)
			return
		}

		switch {
		case errors.Is(err, ErrNotFound):
			r.prune(id)
			r.fail(Failure{ID: id, Code: NotFound, Err: err})
			return
		case errors.Is(err, ErrBadRequest):
			r.prune(id)
			r.fail(Failure{ID: id, Code: ApplicationError, Err: err})
			return
		}

		r.fail(Failure{ID: id, Code: TransientError, RetriesLeft: retriesLeft, Err: err})
		if retriesLeft <= 0 {
			// kept in configuration, a later run may find it
			return
		}
		retriesLeft--

		t := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (r *Resolver) prune(id string) {
	r.mu.Lock()
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	if r.pruner == nil {
		return
	}
	if err := r.pruner.RemoveChannel(id); err != nil {
		r.log.Error("failed to prune channel from configuration", "channel", id, "error", err)
	}
}

func (r *Resolver) fail(f Failure) {
	metrics.IncResolveFailure(f.Code.String())
	r.log.Warn("channel resolution failed", "channel", f.ID, "code", f.Code.String(), "retries_left", f.RetriesLeft, "error", f.Err)
	if r.onFailure != nil {
		r.onFailure(f)
	}
}
