package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/backend/internal/domain/shared"
)

// failingStore simulates a broken backing store
type failingStore struct {
	err error
}

func (s *failingStore) MarkExecuted(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, s.err
}

func (s *failingStore) IsExecuted(ctx context.Context, key string) (bool, error) {
	return false, s.err
}

func (s *failingStore) Remove(ctx context.Context, key string) error {
	return s.err
}

func (s *failingStore) Close() error { return nil }

var _ shared.DedupStore = (*failingStore)(nil)

func TestStoreDeduplicator_CheckThenAct(t *testing.T) {
	store := NewInMemoryDedupStore()
	defer store.Close()

	dedup := NewStoreDeduplicator(store)
	ctx := context.Background()

	t.Run("second check within TTL reports executed", func(t *testing.T) {
		guard := dedup.Deduplicate("market-support", []string{"profile-1", "ChatSync"}, 30*time.Second)

		executed, err := guard.IsExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, executed)

		require.NoError(t, guard.Save(ctx))

		executed, err = guard.IsExecuted(ctx)
		require.NoError(t, err)
		assert.True(t, executed)
	})

	t.Run("guard resets after TTL elapses", func(t *testing.T) {
		guard := dedup.Deduplicate("market-support", []string{"profile-2", "ChatSync"}, 10*time.Millisecond)

		require.NoError(t, guard.Save(ctx))
		time.Sleep(20 * time.Millisecond)

		executed, err := guard.IsExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, executed, "guard should be re-checkable after expiry")
	})

	t.Run("delete clears the guard before its TTL", func(t *testing.T) {
		guard := dedup.Deduplicate("market-support", []string{"profile-3", "ChatSync"}, 1*time.Hour)

		require.NoError(t, guard.Save(ctx))
		require.NoError(t, guard.Delete(ctx))

		executed, err := guard.IsExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, executed)
	})

	t.Run("same parts in different namespaces do not collide", func(t *testing.T) {
		first := dedup.Deduplicate("ns-a", []string{"ticket-9"}, 1*time.Hour)
		second := dedup.Deduplicate("ns-b", []string{"ticket-9"}, 1*time.Hour)

		require.NoError(t, first.Save(ctx))

		executed, err := second.IsExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, executed)
	})

	t.Run("different key parts do not collide", func(t *testing.T) {
		first := dedup.Deduplicate("ns", []string{"msg-1", "ReplyChat"}, 1*time.Hour)
		second := dedup.Deduplicate("ns", []string{"msg-2", "ReplyChat"}, 1*time.Hour)

		require.NoError(t, first.Save(ctx))

		executed, err := second.IsExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, executed)
	})
}

func TestStoreDeduplicator_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("redis gone")
	dedup := NewStoreDeduplicator(&failingStore{err: storeErr})
	ctx := context.Background()

	guard := dedup.Deduplicate("market-support", []string{"profile-1"}, time.Minute)

	// A broken store must never read as "not executed"
	_, err := guard.IsExecuted(ctx)
	require.ErrorIs(t, err, storeErr)

	require.ErrorIs(t, guard.Save(ctx), storeErr)
	require.ErrorIs(t, guard.Delete(ctx), storeErr)
}
