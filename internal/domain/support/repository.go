package support

import (
	"context"

	"github.com/google/uuid"
)

// TicketRepository is the persistence port for the ticket aggregate.
//
// Upsert is last-write-wins on the ticket row itself, but messages are
// insert-only: an implementation must never delete or rewrite a stored
// message, so a ticket can never regress to fewer messages.
type TicketRepository interface {
	// FindByID loads a ticket by its local identifier
	FindByID(ctx context.Context, id uuid.UUID) (*Ticket, error)

	// FindByExternalID loads the ticket mirroring an external entity,
	// or shared.ErrNotFound when the entity has never been synced
	FindByExternalID(ctx context.Context, channel Channel, externalID string) (*Ticket, error)

	// ExistsByExternalMessageID reports whether any ticket already holds a
	// message with the given external ID. This is the durable
	// defense-in-depth check behind the cache-based dedup guard.
	ExistsByExternalMessageID(ctx context.Context, externalID string) (bool, error)

	// ExistsByExternalID reports whether a ticket for the external entity exists
	ExistsByExternalID(ctx context.Context, channel Channel, externalID string) (bool, error)

	// Upsert persists the ticket and appends its new messages
	Upsert(ctx context.Context, ticket *Ticket) error
}
