package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNotConfigured   = errors.New("marketplace: client not configured")
	ErrRequestFailed   = errors.New("marketplace: request failed")
	ErrInvalidResponse = errors.New("marketplace: invalid response payload")
	ErrAuthFailed      = errors.New("marketplace: authentication failed")
	ErrRateLimited     = errors.New("marketplace: rate limited")
)

// RequestError carries the error payload of a non-success API response
// together with the request parameters that triggered it, so callers can
// log both for operator visibility.
type RequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Params     map[string]string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("marketplace: %s failed with status %d: %s %s", e.Op, e.StatusCode, e.Code, e.Message)
}

// Unwrap lets errors.Is match ErrRequestFailed
func (e *RequestError) Unwrap() error {
	return ErrRequestFailed
}

// ---------------------------------------------------------------------------
// Credential
// ---------------------------------------------------------------------------

// Credential identifies one marketplace seller account. Several credentials
// may belong to the same profile; only active credentials are polled.
type Credential struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	BusinessID string
	Token      string
	Active     bool
}

// CredentialRepository provides the credentials the poll trigger fans out over
type CredentialRepository interface {
	// ActiveProfileIDs returns the distinct profiles with at least one
	// active credential
	ActiveProfileIDs(ctx context.Context) ([]uuid.UUID, error)

	// FindActiveByProfile returns all active credentials of one profile
	FindActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]Credential, error)

	// FindByID returns one credential, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (Credential, error)
}

// ---------------------------------------------------------------------------
// Chat records
// ---------------------------------------------------------------------------

// ChatType is the kind of buyer conversation
type ChatType string

const (
	// ChatTypeChat is a regular conversation with a buyer
	ChatTypeChat ChatType = "CHAT"
	// ChatTypeArbitrage is a dispute
	ChatTypeArbitrage ChatType = "ARBITRAGE"
)

// ChatStatus tells whose turn the conversation is waiting on
type ChatStatus string

const (
	ChatStatusNew                ChatStatus = "NEW"
	ChatStatusWaitingForCustomer ChatStatus = "WAITING_FOR_CUSTOMER"
	ChatStatusWaitingForPartner  ChatStatus = "WAITING_FOR_PARTNER"
	ChatStatusWaitingForArbiter  ChatStatus = "WAITING_FOR_ARBITER"
	ChatStatusWaitingForMarket   ChatStatus = "WAITING_FOR_MARKET"
	ChatStatusFinished           ChatStatus = "FINISHED"
)

// AttentionChatTypes is the type filter used when polling chats
func AttentionChatTypes() []ChatType {
	return []ChatType{ChatTypeChat, ChatTypeArbitrage}
}

// AttentionChatStatuses is the status filter used when polling chats.
// Chats awaiting the customer, the arbiter or the marketplace itself are
// excluded: the ball is not in the seller's court and re-processing them
// every tick would be wasted work.
func AttentionChatStatuses() []ChatStatus {
	return []ChatStatus{ChatStatusNew, ChatStatusWaitingForPartner}
}

// Sender identifies who authored a chat message
type Sender string

const (
	// SenderPartner is the seller (our side)
	SenderPartner Sender = "PARTNER"
	// SenderCustomer is the buyer
	SenderCustomer Sender = "CUSTOMER"
	// SenderMarket is the marketplace system itself; its messages are
	// non-actionable notices and are skipped on ingestion
	SenderMarket Sender = "MARKET"
	// SenderSupport is a marketplace support employee
	SenderSupport Sender = "SUPPORT"
)

// ChatSummary is one chat needing attention, as returned by the chat list
type ChatSummary struct {
	ChatID    int64
	OrderID   *int64
	Status    ChatStatus
	Type      ChatType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one message of a chat's history, in remote order
type ChatMessage struct {
	MessageID int64
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// ---------------------------------------------------------------------------
// Review records
// ---------------------------------------------------------------------------

// ReactionFilter selects which reviews a list request returns
type ReactionFilter string

const (
	// ReactionAll returns every review in the window
	ReactionAll ReactionFilter = "ALL"
	// ReactionNeeded returns only reviews still awaiting a seller response
	ReactionNeeded ReactionFilter = "NEED_REACTION"
)

// Review is a normalized product review. Text is the composite of the
// review comment plus advantages/disadvantages; an empty Text means the
// review carries no actionable content.
type Review struct {
	ReviewID     int64
	OrderID      *int64
	Title        string
	Author       string
	Text         string
	Rating       int
	NeedReaction bool
	CreatedAt    time.Time
}

// CommentAuthorType distinguishes seller-side comments from everyone else's
type CommentAuthorType string

const (
	// CommentAuthorBusiness is the seller's own account
	CommentAuthorBusiness CommentAuthorType = "BUSINESS"
	// CommentAuthorUser is a marketplace user
	CommentAuthorUser CommentAuthorType = "USER"
)

// Comment is one entry of a review's comment thread
type Comment struct {
	CommentID  int64
	ParentID   *int64
	AuthorName string
	AuthorType CommentAuthorType
	Text       string
	CreatedAt  time.Time
}

// ---------------------------------------------------------------------------
// Question records
// ---------------------------------------------------------------------------

// Question is a buyer's product question
type Question struct {
	QuestionID int64
	Article    string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// ---------------------------------------------------------------------------
// Client port
// ---------------------------------------------------------------------------

// Client is the port to the marketplace partner API. Concrete adapters live
// in the infrastructure layer; read operations return records in remote
// chronological order with pagination followed internally.
//
// A send failure whose error payload indicates the remote chat is already
// closed is reported as success by adapters: there is nothing left to
// deliver, so treating it as an error would only produce retry noise.
type Client interface {
	// FetchChats lists the chats matching the type and status filters
	FetchChats(ctx context.Context, cred Credential, types []ChatType, statuses []ChatStatus) ([]ChatSummary, error)

	// FetchMessages returns a chat's full message history, oldest first
	FetchMessages(ctx context.Context, cred Credential, chatID int64) ([]ChatMessage, error)

	// FetchReviews lists reviews created after since, filtered by reaction status
	FetchReviews(ctx context.Context, cred Credential, since time.Time, reaction ReactionFilter) ([]Review, error)

	// FetchComments returns the comment thread of a review
	FetchComments(ctx context.Context, cred Credential, reviewID int64) ([]Comment, error)

	// FetchQuestions lists unanswered product questions
	FetchQuestions(ctx context.Context, cred Credential) ([]Question, error)

	// SendChatMessage posts a seller message into a chat
	SendChatMessage(ctx context.Context, cred Credential, chatID int64, text string) error

	// SendReviewComment posts a seller comment under a review
	SendReviewComment(ctx context.Context, cred Credential, reviewID int64, text string) error

	// AnswerQuestion posts a seller answer to a product question
	AnswerQuestion(ctx context.Context, cred Credential, questionID int64, text string) error
}
