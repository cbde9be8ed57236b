package support

import (
	"context"

	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
)

// ChatReplyHandler delivers pending local replies of chat tickets
type ChatReplyHandler struct {
	replyBase
}

// NewChatReplyHandler creates a new ChatReplyHandler
func NewChatReplyHandler(
	client marketplace.Client,
	credentials marketplace.CredentialRepository,
	tickets support.TicketRepository,
	dedup shared.Deduplicator,
	dedupCfg shared.DedupConfig,
	enqueuer ReplyEnqueuer,
	logger *zap.Logger,
) *ChatReplyHandler {
	return &ChatReplyHandler{replyBase{
		channel:     support.ChannelChat,
		handlerName: handlerChatReply,
		tickets:     tickets,
		credentials: credentials,
		dedup:       dedup,
		dedupCfg:    dedupCfg,
		enqueuer:    enqueuer,
		send: func(ctx context.Context, cred marketplace.Credential, externalID int64, text string) error {
			return client.SendChatMessage(ctx, cred, externalID, text)
		},
		logger: logger.Named("chat_reply"),
	}}
}
