package support

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// autoReplyAuthor is the display name for bot-authored review responses
const autoReplyAuthor = "admin"

// Auto-reply texts by rating tier
const (
	autoReplyThanks = "Thank you for your purchase and the excellent review! " +
		"We are glad everything worked out and hope to see you again."
	autoReplyNeutral = "Thank you for your feedback. " +
		"We appreciate you taking the time to share your experience."
	autoReplyApology = "We are sorry your experience fell short. " +
		"Our team will look into the order and do better next time."
)

// AutoReplyHandler answers eligible review tickets automatically. It
// consumes the one-shot auto-reply dispatch: there is no retry, a dispatch
// that never ran leaves the ticket Open for a human responder.
type AutoReplyHandler struct {
	tickets   support.TicketRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewAutoReplyHandler creates a new AutoReplyHandler
func NewAutoReplyHandler(tickets support.TicketRepository, publisher shared.EventPublisher, logger *zap.Logger) *AutoReplyHandler {
	return &AutoReplyHandler{
		tickets:   tickets,
		publisher: publisher,
		logger:    logger.Named("auto_reply"),
	}
}

// EventTypes implements shared.EventHandler
func (h *AutoReplyHandler) EventTypes() []string {
	return []string{support.EventTypeAutoReplyRequired}
}

// Handle implements shared.EventHandler
func (h *AutoReplyHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	dispatch, ok := event.(*support.AutoReplyRequiredEvent)
	if !ok {
		return nil
	}

	ticket, err := h.tickets.FindByID(ctx, event.AggregateID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("auto reply ticket vanished", zap.String("ticket_id", event.AggregateID().String()))
			return nil
		}
		return err
	}

	// Only open review tickets qualify; anything else means an agent or an
	// earlier auto-reply got there first
	if ticket.Channel != support.ChannelReview || ticket.Status != support.StatusOpen {
		return nil
	}

	msg, err := ticket.AppendLocalReply(autoReplyAuthor, replyTextForRating(dispatch.Rating))
	if err != nil {
		return err
	}

	// Closing with a local last message marks the ticket ready for outbound
	// dispatch; the ticket-saved event fires the review reply handler
	ticket.Close()
	if err := h.tickets.Upsert(ctx, ticket); err != nil {
		return err
	}

	h.logger.Info("auto reply queued",
		zap.String("ticket_id", ticket.ID.String()),
		zap.Int("rating", dispatch.Rating),
		zap.String("message_id", msg.ID.String()),
	)

	return h.publisher.Publish(ctx, support.NewTicketSavedEvent(ticket))
}

// replyTextForRating selects the response text for a review rating
func replyTextForRating(rating int) string {
	switch {
	case rating >= 5:
		return autoReplyThanks
	case rating >= 3:
		return autoReplyNeutral
	default:
		return autoReplyApology
	}
}
