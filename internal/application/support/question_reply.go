package support

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// QuestionReplyHandler delivers pending local answers of question tickets
type QuestionReplyHandler struct {
	replyBase
}

// NewQuestionReplyHandler creates a new QuestionReplyHandler
func NewQuestionReplyHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	enqueuer ReplyEnqueuer,
	logger *zap.Logger,
) *QuestionReplyHandler {
	return &QuestionReplyHandler{replyBase{
		channel:     support.ChannelQuestion,
		handlerName: handlerQuestionReply,
		tickets:     tickets,
		credentials: credentials,
		dedup:       dedup,
		dedupCfg:    dedupCfg,
		enqueuer:    enqueuer,
		send: func(ctx context.Context, cred marketplace.Credential, externalID int64, text string) error {
			return client.AnswerQuestion(ctx, cred, externalID, text)
		},
		logger: logger.Named("question_reply"),
	}}
}
