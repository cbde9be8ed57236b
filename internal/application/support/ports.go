package support

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/backend/internal/domain/support"
)

// DedupNamespace scopes every guard key of the sync pipeline
const DedupNamespace = "market-support"

// Handler identities used as dedup key parts. Changing one invalidates the
// corresponding guard windows, so they are fixed strings rather than type
// names.
const (
	handlerChatSync      = "ChatSync"
	handlerReviewSync    = "ReviewSync"
	handlerQuestionSync  = "QuestionSync"
	handlerChatReply     = "ChatReply"
	handlerReviewReply   = "ReviewReply"
	handlerQuestionReply = "QuestionReply"
)

// orderNumberPrefix prefixes marketplace order numbers in the local order
// system
const orderNumberPrefix = "Y-"

// OrderProfileResolver resolves the seller profile owning a marketplace
// order. Chat tickets for order-linked chats are attributed to that profile
// rather than the profile whose credential discovered the chat.
type OrderProfileResolver interface {
	// ResolveByOrder returns the profile owning the order number, or
	// shared.ErrNotFound when the order is unknown locally
	ResolveByOrder(ctx context.Context, orderNumber string) (uuid.UUID, error)
}

// ProductTitleResolver resolves a product title by its article (offer ID).
// Question tickets use the product title as their subject.
type ProductTitleResolver interface {
	// TitleByArticle returns the catalog title for an article, or
	// shared.ErrNotFound when the article is unknown
	TitleByArticle(ctx context.Context, article string) (string, error)
}

// ReplyEnqueuer schedules a delayed retry of an outbound reply. The
// scheduler bounds the number of attempts.
type ReplyEnqueuer interface {
	EnqueueReply(channel support.Channel, ticketID uuid.UUID, delay time.Duration) error
}

// replyRetryDelay is the fixed delay before an outbound reply is retried
const replyRetryDelay = time.Minute
