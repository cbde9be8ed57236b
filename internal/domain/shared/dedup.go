package shared

import (
	"context"
	"time"
)

// DedupGuard is a TTL-scoped idempotency check for one composite key.
// Callers check-then-act: if IsExecuted reports true the work already ran
// within the TTL window and must be skipped; otherwise the caller proceeds
// and calls Save on success. Delete force-clears the key so a correlated
// outer key can be re-checked fresh.
type DedupGuard interface {
	// IsExecuted reports whether an equivalent key was saved within its TTL.
	// A storage error is returned as-is and must NOT be treated as "not
	// executed": double-processing a marketplace action is the exact harm
	// the guard prevents.
	IsExecuted(ctx context.Context) (bool, error)

	// Save marks the key as executed for the guard's TTL
	Save(ctx context.Context) error

	// Delete force-clears the key before its TTL elapses
	Delete(ctx context.Context) error
}

// Deduplicator builds dedup guards from a namespace and semantic key parts.
// The key parts are the calling handler's identity plus a semantic payload
// (profile ID, external ticket ID, external message ID), which scopes
// idempotency per operation kind.
type Deduplicator interface {
	Deduplicate(namespace string, parts []string, ttl time.Duration) DedupGuard
}

// DedupStore is the TTL key-value store backing a Deduplicator
type DedupStore interface {
	// MarkExecuted marks a key as executed with a TTL.
	// Returns true if the key was newly marked, false if it was already set
	MarkExecuted(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsExecuted checks whether a key is set and unexpired
	IsExecuted(ctx context.Context, key string) (bool, error)

	// Remove deletes a key regardless of its TTL
	Remove(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// DedupConfig holds the TTL windows used by the sync handlers
type DedupConfig struct {
	// InvocationTTL throttles overlapping handler runs for one profile
	InvocationTTL time.Duration
	// QuestionInvocationTTL throttles question sync runs; questions move
	// slowly, so they poll on a wider window than chats
	QuestionInvocationTTL time.Duration
	// TicketTTL throttles reprocessing of one remote chat within a tick
	TicketTTL time.Duration
	// MessageTTL guards against re-ingesting one external message
	MessageTTL time.Duration
}

// DefaultDedupConfig returns the default TTL windows
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		InvocationTTL:         time.Minute,
		QuestionInvocationTTL: 5 * time.Minute,
		TicketTTL:             30 * time.Second,
		MessageTTL:            24 * time.Hour,
	}
}
