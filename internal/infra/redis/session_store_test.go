package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/haibuddy/internal/core/memory"
)

func setupTestSessionStore(t *testing.T, cap int, opts ...SessionStoreOption) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(client, cap, opts...), mr
}

func TestSessionStore_AppendAndHistory(t *testing.T) {
	store, _ := setupTestSessionStore(t, 5)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "session-1", memory.Turn{User: "q1", Assistant: "a1"}))
	require.NoError(t, store.Append(ctx, "session-1", memory.Turn{User: "q2", Assistant: "a2"}))

	history, err := store.History(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].User)
	assert.Equal(t, "a2", history[1].Assistant)
}

func TestSessionStore_EvictsBeyondCap(t *testing.T) {
	store, _ := setupTestSessionStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		turn := memory.Turn{User: fmt.Sprintf("q%d", i), Assistant: fmt.Sprintf("a%d", i)}
		require.NoError(t, store.Append(ctx, "session-1", turn))
	}

	history, err := store.History(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "q4", history[0].User)
	assert.Equal(t, "q6", history[2].User)
}

func TestSessionStore_SessionsAreIndependent(t *testing.T) {
	store, _ := setupTestSessionStore(t, 5)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "session-1", memory.Turn{User: "q1", Assistant: "a1"}))
	require.NoError(t, store.Append(ctx, "session-2", memory.Turn{User: "other", Assistant: "answer"}))

	history, err := store.History(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "q1", history[0].User)
}

func TestSessionStore_MissingSessionReturnsEmpty(t *testing.T) {
	store, _ := setupTestSessionStore(t, 5)

	history, err := store.History(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionStore_HistoryExpiresAfterTTL(t *testing.T) {
	store, mr := setupTestSessionStore(t, 5, WithSessionTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "session-1", memory.Turn{User: "q1", Assistant: "a1"}))

	mr.FastForward(2 * time.Minute)

	history, err := store.History(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
