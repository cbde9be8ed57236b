package cache

import (
	"context"
	"strings"
	"time"

	"github.com/supportdesk/backend/internal/domain/shared"
)

// StoreDeduplicator implements shared.Deduplicator on top of a DedupStore.
// Keys are composed as "<namespace>:<part>:<part>..." so one store can be
// shared by every handler without key collisions.
type StoreDeduplicator struct {
	store shared.DedupStore
}

// NewStoreDeduplicator creates a deduplicator backed by the given store
func NewStoreDeduplicator(store shared.DedupStore) *StoreDeduplicator {
	return &StoreDeduplicator{store: store}
}

// Deduplicate builds a guard for the composite key
func (d *StoreDeduplicator) Deduplicate(namespace string, parts []string, ttl time.Duration) shared.DedupGuard {
	return &storeGuard{
		store: d.store,
		key:   composeKey(namespace, parts),
		ttl:   ttl,
	}
}

// composeKey joins the namespace and key parts into one store key
func composeKey(namespace string, parts []string) string {
	if namespace == "" {
		namespace = "default"
	}
	return namespace + ":" + strings.Join(parts, ":")
}

// storeGuard is the DedupGuard for one composite key
type storeGuard struct {
	store shared.DedupStore
	key   string
	ttl   time.Duration
}

// IsExecuted checks the key without side effects. Store errors propagate:
// treating them as "not executed" would invite double-processing.
func (g *storeGuard) IsExecuted(ctx context.Context) (bool, error) {
	return g.store.IsExecuted(ctx, g.key)
}

// Save marks the key executed for the guard's TTL
func (g *storeGuard) Save(ctx context.Context) error {
	_, err := g.store.MarkExecuted(ctx, g.key, g.ttl)
	return err
}

// Delete force-clears the key
func (g *storeGuard) Delete(ctx context.Context) error {
	return g.store.Remove(ctx, g.key)
}

// Ensure StoreDeduplicator implements Deduplicator
var _ shared.Deduplicator = (*StoreDeduplicator)(nil)
