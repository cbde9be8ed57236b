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

// QuestionSyncHandler ingests unanswered product questions into support
// tickets, one ticket per question.
type QuestionSyncHandler struct {
	client      marketplace.Client
	credentials marketplace.CredentialRepository
	tickets     support.TicketRepository
	dedup       shared.Deduplicator
	dedupCfg    shared.DedupConfig
	titles      ProductTitleResolver
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewQuestionSyncHandler creates a new QuestionSyncHandler
func NewQuestionSyncHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	titles ProductTitleResolver,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *QuestionSyncHandler {
	return &QuestionSyncHandler{
		client:      client,
		credentials: credentials,
		tickets:     tickets,
		dedup:       dedup,
		dedupCfg:    dedupCfg,
		titles:      titles,
		publisher:   publisher,
		logger:      logger.Named("question_sync"),
	}
}

// Sync runs one question ingestion pass for the profile.
//
// The invocation guard is saved and left to expire: questions move slowly,
// so one pass per guard window is enough however often the trigger fires.
func (h *QuestionSyncHandler) Sync(ctx context.Context, profileID uuid.UUID) error {
	invocation := h.dedup.Deduplicate(DedupNamespace,
		[]string{profileID.String(), handlerQuestionSync}, h.dedupCfg.QuestionInvocationTTL)

	executed, err := invocation.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("question sync invocation guard: %w", err)
	}
	if executed {
		return nil
	}
	if err := invocation.Save(ctx); err != nil {
		return fmt.Errorf("question sync invocation guard: %w", err)
	}

	credentials, err := h.credentials.FindActiveByProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("question sync: load credentials: %w", err)
	}

	for _, cred := range credentials {
		h.syncCredential(ctx, profileID, cred)
	}
	return nil
}

// syncCredential ingests the open questions of one credential
func (h *QuestionSyncHandler) syncCredential(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential) {
	questions, err := h.client.FetchQuestions(ctx, cred)
	if err != nil {
		h.logger.Error("failed to fetch questions",
			zap.String("profile_id", profileID.String()),
			zap.String("business_id", cred.BusinessID),
			zap.Error(err),
		)
		return
	}

	for _, question := range questions {
		if err := h.syncQuestion(ctx, profileID, cred, question); err != nil {
			h.logger.Error("failed to sync question",
				zap.Int64("question_id", question.QuestionID),
				zap.String("profile_id", profileID.String()),
				zap.Error(err),
			)
		}
	}
}

// syncQuestion creates the ticket for one question unless it already exists
func (h *QuestionSyncHandler) syncQuestion(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential, question marketplace.Question) error {
	externalID := strconv.FormatInt(question.QuestionID, 10)

	guard := h.dedup.Deduplicate(DedupNamespace,
		[]string{externalID, handlerQuestionSync}, h.dedupCfg.MessageTTL)
	executed, err := guard.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("question guard: %w", err)
	}
	if executed {
		return nil
	}

	exists, err := h.tickets.ExistsByExternalID(ctx, support.ChannelQuestion, externalID)
	if err != nil {
		return fmt.Errorf("question exists check: %w", err)
	}
	if exists {
		if err := guard.Save(ctx); err != nil {
			h.logger.Warn("failed to save question guard", zap.Error(err))
		}
		return nil
	}

	title, err := h.titles.TitleByArticle(ctx, question.Article)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Unknown article: without a product there is nobody to answer
			h.logger.Warn("skipping question for unknown article",
				zap.Int64("question_id", question.QuestionID),
				zap.String("article", question.Article),
			)
			return nil
		}
		return fmt.Errorf("resolve product title: %w", err)
	}

	ticket, err := support.NewTicket(support.ChannelQuestion, externalID, title, profileID, cred.ID)
	if err != nil {
		return err
	}
	if _, err := ticket.AppendExternal(externalID, question.AuthorName, question.Text, support.DirectionInbound, question.CreatedAt); err != nil {
		return fmt.Errorf("append question: %w", err)
	}

	if err := h.tickets.Upsert(ctx, ticket); err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	if err := h.publisher.Publish(ctx, support.NewTicketSavedEvent(ticket)); err != nil {
		h.logger.Warn("failed to publish ticket saved event", zap.Error(err))
	}
	if err := guard.Save(ctx); err != nil {
		h.logger.Warn("failed to save question guard", zap.Error(err))
	}

	h.logger.Info("question ticket created",
		zap.Int64("question_id", question.QuestionID),
		zap.String("ticket_id", ticket.ID.String()),
	)
	return nil
}
