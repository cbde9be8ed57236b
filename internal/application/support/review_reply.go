package support

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// ReviewReplyHandler delivers pending local replies of review tickets,
// including the auto-generated ones
type ReviewReplyHandler struct {
	replyBase
}

// NewReviewReplyHandler creates a new ReviewReplyHandler
func NewReviewReplyHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	enqueuer ReplyEnqueuer,
	logger *zap.Logger,
) *ReviewReplyHandler {
	return &ReviewReplyHandler{replyBase{
		channel:     support.ChannelReview,
		handlerName: handlerReviewReply,
		tickets:     tickets,
		credentials: credentials,
		dedup:       dedup,
		dedupCfg:    dedupCfg,
		enqueuer:    enqueuer,
		send: func(ctx context.Context, cred marketplace.Credential, externalID int64, text string) error {
			return client.SendReviewComment(ctx, cred, externalID, text)
		},
		logger: logger.Named("review_reply"),
	}}
}
