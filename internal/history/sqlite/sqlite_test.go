package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/servermgr/internal/history"
)

func TestSQLiteSink_File(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	sink, err := New("sqlite://" + dbPath)
	require.NoError(t, err)
	defer func() { assert.NoError(t, sink.Close()) }()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, sink.Send(ctx, history.Event{
		Type: history.EventStart, RunID: "run-1", Path: "/srv/game", PID: 12345, OccurredAt: now,
	}))
	require.NoError(t, sink.Send(ctx, history.Event{
		Type: history.EventExit, RunID: "run-1", Path: "/srv/game", PID: 12345, ExitCode: 3,
		OccurredAt: now.Add(time.Minute), Message: "Server process exited with exit code 3.",
	}))

	n, err := sink.Count(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = sink.Count(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	require.NoError(t, sink.Send(ctx, history.Event{Type: history.EventStop, RunID: "mem", OccurredAt: time.Now()}))

	n, err := sink.Count(ctx, "mem")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}

func TestSQLiteSink_ContextCancellation(t *testing.T) {
	sink, err := New(":memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sink.Send(ctx, history.Event{Type: history.EventStart, RunID: "cancelled", OccurredAt: time.Now()})
	assert.Error(t, err)
}
