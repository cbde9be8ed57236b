package support

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// sendFunc delivers one outbound text to the marketplace entity identified
// by its numeric external ID
type sendFunc func(ctx context.Context, cred marketplace.Credential, externalID int64, text string) error

// replyBase is the shared engine of the three outbound reply handlers. Each
// handler binds a channel and a send operation; everything else (ticket
// eligibility, the per-message dedup guard, credential lookup, retry
// enqueueing) is identical across channels.
type replyBase struct {
	channel     support.Channel
	handlerName string
	tickets     support.TicketRepository
	credentials marketplace.CredentialRepository
	dedup       shared.Deduplicator
	dedupCfg    shared.DedupConfig
	enqueuer    ReplyEnqueuer
	send        sendFunc
	logger      *zap.Logger
}

// EventTypes implements shared.EventHandler
func (h *replyBase) EventTypes() []string {
	return []string{support.EventTypeTicketSaved}
}

// Handle implements shared.EventHandler. A failed dispatch is handed to the
// scheduler exactly once; the scheduler's bounded retry owns every attempt
// after that, so Dispatch itself never re-enqueues.
func (h *replyBase) Handle(ctx context.Context, event shared.DomainEvent) error {
	saved, ok := event.(*support.TicketSavedEvent)
	if !ok || saved.Channel != h.channel {
		return nil
	}

	if err := h.Dispatch(ctx, saved.AggregateID()); err != nil {
		h.logger.Error("outbound dispatch failed, scheduling retry",
			zap.String("ticket_id", saved.AggregateID().String()),
			zap.Error(err),
		)
		if enqErr := h.enqueuer.EnqueueReply(h.channel, saved.AggregateID(), replyRetryDelay); enqErr != nil {
			h.logger.Error("failed to schedule reply retry", zap.Error(enqErr))
		}
		return err
	}
	return nil
}

// Dispatch attempts to deliver the ticket's pending local reply. A ticket is
// eligible when it belongs to the handler's channel, is Closed, and its last
// message is locally authored. Ineligible tickets are a silent no-op: most
// ticket-saved events are inbound syncs with nothing to send.
func (h *replyBase) Dispatch(ctx context.Context, ticketID uuid.UUID) error {
	ticket, err := h.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.logger.Warn("reply ticket vanished", zap.String("ticket_id", ticketID.String()))
			return nil
		}
		return fmt.Errorf("load ticket: %w", err)
	}

	if ticket.Channel != h.channel || ticket.Status != support.StatusClosed {
		return nil
	}
	last := ticket.LastMessage()
	if last == nil || !last.IsLocal() {
		return nil
	}

	// Guarded per local message UUID: a retried dispatch after a guard-save
	// failure may double-deliver, which is preferable to never delivering
	guard := h.dedup.Deduplicate(DedupNamespace,
		[]string{last.ID.String(), h.handlerName}, h.dedupCfg.MessageTTL)
	executed, err := guard.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("reply guard: %w", err)
	}
	if executed {
		return nil
	}

	cred, err := h.credentials.FindByID(ctx, ticket.CredentialID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	externalID, err := strconv.ParseInt(ticket.ExternalID, 10, 64)
	if err != nil {
		// Not retryable: the ticket was created outside the sync pipeline
		h.logger.Error("ticket has non-numeric external id",
			zap.String("ticket_id", ticket.ID.String()),
			zap.String("external_id", ticket.ExternalID),
		)
		return nil
	}

	if err := h.send(ctx, cred, externalID, last.Text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	if err := guard.Save(ctx); err != nil {
		h.logger.Warn("failed to save reply guard", zap.Error(err))
	}

	h.logger.Info("outbound reply delivered",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("external_id", ticket.ExternalID),
		zap.String("message_id", last.ID.String()),
	)
	return nil
}
