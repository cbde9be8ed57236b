package support

import (
	"github.com/google/uuid"

	"github.com/supportdesk/backend/internal/domain/shared"
)

// Event types emitted by the sync pipeline
const (
	EventTypeTicketSaved       = "support.ticket.saved"
	EventTypeAutoReplyRequired = "support.review.auto_reply_required"
)

// AggregateTypeTicket names the ticket aggregate in events
const AggregateTypeTicket = "SupportTicket"

// TicketSavedEvent is published after a ticket upsert. The outbound reply
// handlers consume it to decide whether a locally-authored message is
// pending dispatch.
type TicketSavedEvent struct {
	shared.BaseDomainEvent
	Channel      Channel   `json:"channel"`
	ProfileID    uuid.UUID `json:"profile_id"`
	CredentialID uuid.UUID `json:"credential_id"`
}

// NewTicketSavedEvent creates a TicketSavedEvent for the given ticket
func NewTicketSavedEvent(t *Ticket) *TicketSavedEvent {
	return &TicketSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTicketSaved, AggregateTypeTicket, t.ID),
		Channel:         t.Channel,
		ProfileID:       t.ProfileID,
		CredentialID:    t.CredentialID,
	}
}

// AutoReplyRequiredEvent is a one-shot dispatch asking the auto-reply
// handler to answer a review ticket. It is not retried: a lost dispatch
// leaves the ticket Open, where a human responder picks it up.
type AutoReplyRequiredEvent struct {
	shared.BaseDomainEvent
	Rating int `json:"rating"`
}

// NewAutoReplyRequiredEvent creates an AutoReplyRequiredEvent for a review ticket
func NewAutoReplyRequiredEvent(t *Ticket, rating int) *AutoReplyRequiredEvent {
	return &AutoReplyRequiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAutoReplyRequired, AggregateTypeTicket, t.ID),
		Rating:          rating,
	}
}
