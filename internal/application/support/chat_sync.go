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

// ChatSyncHandler ingests buyer chats needing attention into support
// tickets. One invocation covers one seller profile; the poll trigger fans
// out an invocation per active profile.
type ChatSyncHandler struct {
	client      marketplace.Client
	credentials marketplace.CredentialRepository
	tickets     support.TicketRepository
	dedup       shared.Deduplicator
	dedupCfg    shared.DedupConfig
	orders      OrderProfileResolver
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewChatSyncHandler creates a new ChatSyncHandler
func NewChatSyncHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	orders OrderProfileResolver,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ChatSyncHandler {
	return &ChatSyncHandler{
		client:      client,
		credentials: credentials,
		tickets:     tickets,
		dedup:       dedup,
		dedupCfg:    dedupCfg,
		orders:      orders,
		publisher:   publisher,
		logger:      logger.Named("chat_sync"),
	}
}

// Sync runs one chat ingestion pass for the profile.
//
// The invocation guard is saved up front and deleted on completion: it is a
// short-TTL throttle against overlapping runs for the same profile, not a
// mutex, so a crashed run unblocks itself when the TTL lapses.
func (h *ChatSyncHandler) Sync(ctx context.Context, profileID uuid.UUID) error {
	invocation := h.dedup.Deduplicate(DedupNamespace,
		[]string{profileID.String(), handlerChatSync}, h.dedupCfg.InvocationTTL)

	executed, err := invocation.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("chat sync invocation guard: %w", err)
	}
	if executed {
		h.logger.Debug("chat sync already running", zap.String("profile_id", profileID.String()))
		return nil
	}
	if err := invocation.Save(ctx); err != nil {
		return fmt.Errorf("chat sync invocation guard: %w", err)
	}
	defer func() {
		if err := invocation.Delete(ctx); err != nil {
			h.logger.Warn("failed to release invocation guard", zap.Error(err))
		}
	}()

	credentials, err := h.credentials.FindActiveByProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("chat sync: load credentials: %w", err)
	}

	for _, cred := range credentials {
		h.syncCredential(ctx, profileID, cred)
	}
	return nil
}

// syncCredential ingests the attention-needing chats of one credential.
// Remote read failures are logged and skipped: the next poll retries.
func (h *ChatSyncHandler) syncCredential(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential) {
	chats, err := h.client.FetchChats(ctx, cred,
		marketplace.AttentionChatTypes(), marketplace.AttentionChatStatuses())
	if err != nil {
		h.logger.Error("failed to fetch chats",
			zap.String("profile_id", profileID.String()),
			zap.String("business_id", cred.BusinessID),
			zap.Error(err),
		)
		return
	}

	for _, chat := range chats {
		if err := h.syncChat(ctx, profileID, cred, chat); err != nil {
			h.logger.Error("failed to sync chat",
				zap.Int64("chat_id", chat.ChatID),
				zap.String("profile_id", profileID.String()),
				zap.Error(err),
			)
		}
	}
}

// syncChat merges one remote chat into its ticket
func (h *ChatSyncHandler) syncChat(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential, chat marketplace.ChatSummary) error {
	externalID := strconv.FormatInt(chat.ChatID, 10)

	chatGuard := h.dedup.Deduplicate(DedupNamespace,
		[]string{externalID, handlerChatSync}, h.dedupCfg.TicketTTL)
	executed, err := chatGuard.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("chat guard: %w", err)
	}
	if executed {
		return nil
	}

	ticket, err := h.resolveTicket(ctx, profileID, cred, chat, externalID)
	if err != nil {
		return err
	}

	messages, err := h.client.FetchMessages(ctx, cred, chat.ChatID)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}

	appended := 0
	for _, msg := range messages {
		added, err := h.appendMessage(ctx, ticket, msg)
		if err != nil {
			h.logger.Warn("skipping chat message",
				zap.Int64("message_id", msg.MessageID),
				zap.Int64("chat_id", chat.ChatID),
				zap.Error(err),
			)
			continue
		}
		if added {
			appended++
		}
	}

	if appended > 0 {
		// New inbound content reopens the conversation for triage
		ticket.Open()
		if err := h.tickets.Upsert(ctx, ticket); err != nil {
			return fmt.Errorf("upsert ticket: %w", err)
		}
		if err := h.publisher.Publish(ctx, support.NewTicketSavedEvent(ticket)); err != nil {
			h.logger.Warn("failed to publish ticket saved event", zap.Error(err))
		}
		h.logger.Info("chat ticket updated",
			zap.Int64("chat_id", chat.ChatID),
			zap.Int("new_messages", appended),
			zap.String("ticket_id", ticket.ID.String()),
		)
	}

	// Saved even without an upsert so the chat is not re-examined this tick
	if err := chatGuard.Save(ctx); err != nil {
		h.logger.Warn("failed to save chat guard", zap.Error(err))
	}
	return nil
}

// resolveTicket loads the ticket mirroring the chat, creating it on first
// contact. Order-linked chats are attributed to the profile owning the
// order when it resolves locally.
func (h *ChatSyncHandler) resolveTicket(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential, chat marketplace.ChatSummary, externalID string) (*support.Ticket, error) {
	ticket, err := h.tickets.FindByExternalID(ctx, support.ChannelChat, externalID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find ticket: %w", err)
	}

	title := support.NoSubjectTitle
	owner := profileID
	if chat.OrderID != nil {
		title = fmt.Sprintf("Order #%d", *chat.OrderID)

		orderNumber := orderNumberPrefix + strconv.FormatInt(*chat.OrderID, 10)
		resolved, err := h.orders.ResolveByOrder(ctx, orderNumber)
		switch {
		case err == nil:
			owner = resolved
		case errors.Is(err, shared.ErrNotFound):
			h.logger.Debug("order not found locally, keeping polling profile",
				zap.String("order", orderNumber))
		default:
			return nil, fmt.Errorf("resolve order profile: %w", err)
		}
	}

	return support.NewTicket(support.ChannelChat, externalID, title, owner, cred.ID)
}

// appendMessage merges one remote message into the ticket. Returns whether
// a message was actually appended.
func (h *ChatSyncHandler) appendMessage(ctx context.Context, ticket *support.Ticket, msg marketplace.ChatMessage) (bool, error) {
	// Marketplace system notices carry no actionable content
	if msg.Sender == marketplace.SenderMarket {
		return false, nil
	}

	messageID := strconv.FormatInt(msg.MessageID, 10)

	msgGuard := h.dedup.Deduplicate(DedupNamespace,
		[]string{messageID, handlerChatSync}, h.dedupCfg.MessageTTL)
	executed, err := msgGuard.IsExecuted(ctx)
	if err != nil {
		return false, fmt.Errorf("message guard: %w", err)
	}
	if executed {
		return false, nil
	}

	// The guard cache may have been lost; the store is the durable check
	exists, err := h.tickets.ExistsByExternalMessageID(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("message exists check: %w", err)
	}
	if exists {
		if err := msgGuard.Save(ctx); err != nil {
			h.logger.Warn("failed to save message guard", zap.Error(err))
		}
		return false, nil
	}

	direction := support.DirectionInbound
	if msg.Sender == marketplace.SenderPartner {
		direction = support.DirectionOutbound
	}

	added, err := ticket.AppendExternal(messageID, string(msg.Sender), msg.Text, direction, msg.CreatedAt)
	if err != nil {
		return false, err
	}

	if err := msgGuard.Save(ctx); err != nil {
		h.logger.Warn("failed to save message guard", zap.Error(err))
	}
	return added, nil
}
