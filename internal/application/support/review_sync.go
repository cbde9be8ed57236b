package support

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// reviewWindowMargin widens the review poll window beyond the poll
// interval. Over-fetching is deliberate: the marketplace list endpoint is
// not exactly aligned with our ticks, and re-seen reviews are dropped by
// the message dedup downstream.
const reviewWindowMargin = time.Hour

// ReviewSyncHandler ingests product reviews awaiting a seller reaction into
// support tickets and dispatches auto-replies for eligible reviews.
type ReviewSyncHandler struct {
	client       marketplace.Client
	credentials  marketplace.CredentialRepository
	tickets      support.TicketRepository
	dedup        shared.Deduplicator
	dedupCfg     shared.DedupConfig
	pollInterval time.Duration
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewReviewSyncHandler creates a new ReviewSyncHandler
func NewReviewSyncHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	pollInterval time.Duration,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ReviewSyncHandler {
	return &ReviewSyncHandler{
		client:       client,
		credentials:  credentials,
		tickets:      tickets,
		dedup:        dedup,
		dedupCfg:     dedupCfg,
		pollInterval: pollInterval,
		publisher:    publisher,
		logger:       logger.Named("review_sync"),
	}
}

// Sync runs one review ingestion pass for the profile
func (h *ReviewSyncHandler) Sync(ctx context.Context, profileID uuid.UUID) error {
	invocation := h.dedup.Deduplicate(DedupNamespace,
		[]string{profileID.String(), handlerReviewSync}, h.dedupCfg.InvocationTTL)

	executed, err := invocation.IsExecuted(ctx)
	if err != nil {
		return fmt.Errorf("review sync invocation guard: %w", err)
	}
	if executed {
		h.logger.Debug("review sync already running", zap.String("profile_id", profileID.String()))
		return nil
	}
	if err := invocation.Save(ctx); err != nil {
		return fmt.Errorf("review sync invocation guard: %w", err)
	}
	defer func() {
		if err := invocation.Delete(ctx); err != nil {
			h.logger.Warn("failed to release invocation guard", zap.Error(err))
		}
	}()

	since := time.Now().UTC().Add(-(h.pollInterval + reviewWindowMargin))

	credentials, err := h.credentials.FindActiveByProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("review sync: load credentials: %w", err)
	}

	for _, cred := range credentials {
		h.syncCredential(ctx, profileID, cred, since)
	}
	return nil
}

// syncCredential ingests the recent reaction-needing reviews of one credential
func (h *ReviewSyncHandler) syncCredential(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential, since time.Time) {
	reviews, err := h.client.FetchReviews(ctx, cred, since, marketplace.ReactionNeeded)
	if err != nil {
		h.logger.Error("failed to fetch reviews",
			zap.String("profile_id", profileID.String()),
			zap.String("business_id", cred.BusinessID),
			zap.Error(err),
		)
		return
	}

	for _, review := range reviews {
		if strings.TrimSpace(review.Text) == "" {
			// Star-only review, nothing to answer
			h.logger.Debug("skipping review without text", zap.Int64("review_id", review.ReviewID))
			continue
		}
		if err := h.syncReview(ctx, profileID, cred, review); err != nil {
			h.logger.Error("failed to sync review",
				zap.Int64("review_id", review.ReviewID),
				zap.String("profile_id", profileID.String()),
				zap.Error(err),
			)
		}
	}
}

// syncReview merges one review and its comment thread into a ticket
func (h *ReviewSyncHandler) syncReview(ctx context.Context, profileID uuid.UUID, cred marketplace.Credential, review marketplace.Review) error {
	externalID := strconv.FormatInt(review.ReviewID, 10)

	ticket, err := h.tickets.FindByExternalID(ctx, support.ChannelReview, externalID)
	if errors.Is(err, shared.ErrNotFound) {
		ticket, err = support.NewTicket(support.ChannelReview, externalID, review.Title, profileID, cred.ID)
	}
	if err != nil {
		return fmt.Errorf("resolve ticket: %w", err)
	}

	appended := 0

	added, err := ticket.AppendExternal(externalID, review.Author, review.Text, support.DirectionInbound, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	if added {
		appended++
	}

	hasBusinessComment := false
	comments, err := h.client.FetchComments(ctx, cred, review.ReviewID)
	if err != nil {
		// The review itself is still worth saving; comments arrive next pass
		h.logger.Warn("failed to fetch review comments",
			zap.Int64("review_id", review.ReviewID),
			zap.Error(err),
		)
		comments = nil
	}

	for _, comment := range comments {
		if comment.AuthorType == marketplace.CommentAuthorBusiness {
			hasBusinessComment = true
		}
		if strings.TrimSpace(comment.Text) == "" {
			continue
		}

		direction := support.DirectionInbound
		if comment.AuthorType == marketplace.CommentAuthorBusiness {
			direction = support.DirectionOutbound
		}

		commentID := strconv.FormatInt(comment.CommentID, 10)
		added, err := ticket.AppendExternal(commentID, comment.AuthorName, comment.Text, direction, comment.CreatedAt)
		if err != nil {
			h.logger.Warn("skipping review comment",
				zap.Int64("comment_id", comment.CommentID),
				zap.Error(err),
			)
			continue
		}
		if added {
			appended++
		}
	}

	if appended == 0 {
		return nil
	}

	ticket.Open()
	if err := h.tickets.Upsert(ctx, ticket); err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	if err := h.publisher.Publish(ctx, support.NewTicketSavedEvent(ticket)); err != nil {
		h.logger.Warn("failed to publish ticket saved event", zap.Error(err))
	}

	h.logger.Info("review ticket updated",
		zap.Int64("review_id", review.ReviewID),
		zap.Int("new_messages", appended),
		zap.Int("rating", review.Rating),
	)

	// A five-star review, or one nobody answered yet, gets an automatic
	// response; middling and already-answered reviews are left to a human
	if review.NeedReaction && (review.Rating == 5 || !hasBusinessComment) {
		if err := h.publisher.Publish(ctx, support.NewAutoReplyRequiredEvent(ticket, review.Rating)); err != nil {
			h.logger.Warn("failed to dispatch auto reply", zap.Error(err))
		}
	}
	return nil
}
