package scheduler

import (
	"context"

	"github.com/google/uuid"
)

// ProfileSyncer runs one ingestion pass for a seller profile
type ProfileSyncer interface {
	Sync(ctx context.Context, profileID uuid.UUID) error
}

// ReplyDispatcher attempts delivery of a ticket's pending outbound reply
type ReplyDispatcher interface {
	Dispatch(ctx context.Context, ticketID uuid.UUID) error
}

// HandlerExecutor routes jobs to the application handlers by kind
type HandlerExecutor struct {
	chatSync     ProfileSyncer
	reviewSync   ProfileSyncer
	questionSync ProfileSyncer

	chatReply     ReplyDispatcher
	reviewReply   ReplyDispatcher
	questionReply ReplyDispatcher
}

// NewHandlerExecutor creates an executor over the given handlers
func NewHandlerExecutor(
	chatSync, reviewSync, questionSync ProfileSyncer,
	chatReply, reviewReply, questionReply ReplyDispatcher,
) *HandlerExecutor {
	return &HandlerExecutor{
		chatSync:      chatSync,
		reviewSync:    reviewSync,
		questionSync:  questionSync,
		chatReply:     chatReply,
		reviewReply:   reviewReply,
		questionReply: questionReply,
	}
}

// Execute implements SyncExecutor
func (e *HandlerExecutor) Execute(ctx context.Context, job *SyncJob) error {
	switch job.Kind {
	case JobKindChatSync:
		return e.chatSync.Sync(ctx, job.ProfileID)
	case JobKindReviewSync:
		return e.reviewSync.Sync(ctx, job.ProfileID)
	case JobKindQuestionSync:
		return e.questionSync.Sync(ctx, job.ProfileID)
	case JobKindChatReply:
		return e.chatReply.Dispatch(ctx, job.TicketID)
	case JobKindReviewReply:
		return e.reviewReply.Dispatch(ctx, job.TicketID)
	case JobKindQuestionReply:
		return e.questionReply.Dispatch(ctx, job.TicketID)
	default:
		return ErrUnknownJobKind
	}
}

// Ensure HandlerExecutor implements SyncExecutor
var _ SyncExecutor = (*HandlerExecutor)(nil)
