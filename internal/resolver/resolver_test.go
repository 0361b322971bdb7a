package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/relay"
)

type mockChannel struct{ id string }

func (c mockChannel) ID() string { return c.id }
func (c mockChannel) Send(context.Context, string) error { return nil }

// MockClient fails each id with the scripted errors before succeeding.
type MockClient struct {
	mu     sync.Mutex
	errs   map[string][]error
	always map[string]error
	calls  map[string]int
}

func (m *MockClient) ResolveChannel(_ context.Context, id string) (relay.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[id]++
	if err, ok := m.always[id]; ok {
		return nil, err
	}
	if q := m.errs[id]; len(q) > 0 {
		m.errs[id] = q[1:]
		return nil, q[0]
	}
	return mockChannel{id: id}, nil
}

type MockPruner struct {
	mu     sync.Mutex
	pruned []string
}

func (p *MockPruner) RemoveChannel(id string) error {
	p.mu.Lock()
	p.pruned = append(p.pruned, id)
	p.mu.Unlock()
	return nil
}

func collect(fs *[]Failure) Option {
	return WithFailureHandler(func(f Failure) { *fs = append(*fs, f) })
}

func TestResolveSuccessKeepsOrder(t *testing.T) {
	c := &MockClient{}
	r := New(c, []string{"1", "2", "3"}, nil, WithRetry(5, 0))
	r.Run(context.Background())

	<-r.Done()
	var ids []string
	for _, ch := range r.Channels() {
		ids = append(ids, ch.ID())
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestNotFoundIsPrunedAfterOneAttempt(t *testing.T) {
	c := &MockClient{always: map[string]error{"404": fmt.Errorf("get: %w", ErrNotFound)}}
	p := &MockPruner{}
	var fs []Failure
	r := New(c, []string{"404", "ok"}, p, WithRetry(5, 0), collect(&fs))
	r.Run(context.Background())

	assert.Equal(t, 1, c.calls["404"])
	assert.Equal(t, []string{"404"}, p.pruned)
	assert.Equal(t, []string{"ok"}, r.IDs())
	require.Len(t, fs, 1)
	assert.Equal(t, NotFound, fs[0].Code)
	assert.Zero(t, fs[0].RetriesLeft)
	assert.Len(t, r.Channels(), 1)
}

func TestBadRequestIsApplicationError(t *testing.T) {
	c := &MockClient{always: map[string]error{"x": ErrBadRequest}}
	p := &MockPruner{}
	var fs []Failure
	r := New(c, []string{"x"}, p, WithRetry(5, 0), collect(&fs))
	r.Run(context.Background())

	require.Len(t, fs, 1)
	assert.Equal(t, ApplicationError, fs[0].Code)
	assert.Equal(t, []string{"x"}, p.pruned)
	assert.Empty(t, r.IDs())
}

func TestTransientRetriedFiveTimes(t *testing.T) {
	c := &MockClient{always: map[string]error{"7": errors.New("gateway timeout")}}
	p := &MockPruner{}
	var fs []Failure
	r := New(c, []string{"7"}, p, WithRetry(5, time.Millisecond), collect(&fs))
	r.Run(context.Background())

	assert.Equal(t, 5, c.calls["7"])
	require.Len(t, fs, 5)
	for i, f := range fs {
		assert.Equal(t, TransientError, f.Code)
		assert.Equal(t, 4-i, f.RetriesLeft)
	}
	assert.Empty(t, p.pruned)
	assert.Equal(t, []string{"7"}, r.IDs())
	assert.Empty(t, r.Channels())
}

func TestTransientThenSuccess(t *testing.T) {
	c := &MockClient{errs: map[string][]error{"9": {errors.New("a"), errors.New("b")}}}
	var fs []Failure
	r := New(c, []string{"9"}, nil, WithRetry(5, 0), collect(&fs))
	r.Run(context.Background())

	assert.Len(t, fs, 2)
	assert.Len(t, r.Channels(), 1)
}

func TestDoneAndSkip(t *testing.T) {
	r := New(&MockClient{}, []string{"1"}, nil)
	select {
	case <-r.Done():
		t.Fatal("done before run")
	default:
	}
	r.Skip()
	r.Skip()
	<-r.Done()
	assert.Empty(t, r.Channels())
}

func TestRunRespectsCancellation(t *testing.T) {
	c := &MockClient{always: map[string]error{"1": errors.New("down")}}
	ctx, cancel := context.WithCancel(context.Background())
	r := New(c, []string{"1", "2"}, nil, WithRetry(5, time.Hour), WithFailureHandler(func(Failure) { cancel() }))

	finished := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	<-r.Done()
	assert.Equal(t, 1, c.calls["1"])
	assert.Zero(t, c.calls["2"])
}

func TestMessage(t *testing.T) {
	e := Message(Failure{ID: "42", Code: TransientError, RetriesLeft: 3})
	assert.Equal(t, "Couldn't get channel 42 due to an error on Discord side. Retrying 3 more times.", e.Text)
	assert.Equal(t, event.LevelWarn, e.Level)

	e = Message(Failure{ID: "42", Code: NotFound})
	assert.Equal(t, "Couldn't get channel 42 because it couldn't be found. Retries were exhausted.", e.Text)
	assert.Equal(t, event.LevelError, e.Level)

	e = Message(Failure{ID: "1", Code: ApplicationError})
	assert.Contains(t, e.Text, "due to an application error")
}
