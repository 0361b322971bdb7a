package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mu      sync.Mutex
	lines   []string
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (w *MockWriter) SendInput(text string) error {
	if w.entered != nil {
		w.entered <- struct{}{}
	}
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, text)
	return w.err
}

func (w *MockWriter) got() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

func TestQueueSerializesProducers(t *testing.T) {
	w := &MockWriter{}
	q := NewQueue(w)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	var wg sync.WaitGroup
	for _, src := range []Source{SourceConsole, SourceChat, SourceHTTP} {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				assert.NoError(t, q.Submit(ctx, src, fmt.Sprintf("%s-%d", src, i)))
			}
		}(src)
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return len(w.got()) == 30 }, time.Second, 5*time.Millisecond)
}

func TestQueuePreservesOrderPerProducer(t *testing.T) {
	w := &MockWriter{}
	q := NewQueue(w)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Submit(ctx, SourceConsole, fmt.Sprint(i)))
	}
	assert.Eventually(t, func() bool { return len(w.got()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, w.got())
}

func TestTrySubmitFull(t *testing.T) {
	w := &MockWriter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	q := NewQueue(w, WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.TrySubmit(SourceTrigger, "a"))
	<-w.entered // consumer holds "a"
	require.NoError(t, q.TrySubmit(SourceTrigger, "b"))
	assert.ErrorIs(t, q.TrySubmit(SourceTrigger, "c"), ErrFull)
	close(w.block)
}

func TestResultHandler(t *testing.T) {
	boom := errors.New("not running")
	w := &MockWriter{err: boom}
	results := make(chan error, 1)
	q := NewQueue(w, WithResultHandler(func(c Command, err error) {
		assert.Equal(t, SourceHTTP, c.Source)
		results <- err
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.NoError(t, q.Submit(ctx, SourceHTTP, "list"))
	select {
	case err := <-results:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestClosedAfterRun(t *testing.T) {
	q := NewQueue(&MockWriter{})
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(finished)
	}()
	cancel()
	<-finished

	assert.ErrorIs(t, q.TrySubmit(SourceConsole, "x"), ErrClosed)
	assert.ErrorIs(t, q.Submit(context.Background(), SourceConsole, "x"), ErrClosed)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "console", SourceConsole.String())
	assert.Equal(t, "chat", SourceChat.String())
	assert.Equal(t, "http", SourceHTTP.String())
	assert.Equal(t, "trigger", SourceTrigger.String())
}
