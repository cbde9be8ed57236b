package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/supportdesk/backend/internal/domain/marketplace"
)

// validate checks raw API payloads before they are normalized
var validate = validator.New()

// yandexTime unmarshals the timestamp formats the partner API emits
type yandexTime struct {
	time.Time
}

// timeLayouts are tried in order when parsing API timestamps
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-01-2006 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *yandexTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("yandex: unsupported timestamp %q", raw)
}

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// yandexAPIError is one entry of a non-200 error payload
type yandexAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// yandexErrorEnvelope is the error body shape of every endpoint
type yandexErrorEnvelope struct {
	Status string           `json:"status"`
	Errors []yandexAPIError `json:"errors"`
}

// first returns the first error of the payload, or a zero value
func (e *yandexErrorEnvelope) first() yandexAPIError {
	if len(e.Errors) == 0 {
		return yandexAPIError{}
	}
	return e.Errors[0]
}

// yandexPaging carries the token of the next result page
type yandexPaging struct {
	NextPageToken string `json:"nextPageToken"`
}

// ---------------------------------------------------------------------------
// Chats
// ---------------------------------------------------------------------------

// yandexChatsRequest is the body of POST /businesses/{id}/chats
type yandexChatsRequest struct {
	Types    []string `json:"types"`
	Statuses []string `json:"statuses"`
}

// yandexChatPayload is one chat of the list response
type yandexChatPayload struct {
	ChatID    int64      `json:"chatId" validate:"required"`
	OrderID   *int64     `json:"orderId"`
	Status    string     `json:"status" validate:"required"`
	Type      string     `json:"type" validate:"required"`
	CreatedAt yandexTime `json:"createdAt"`
	UpdatedAt yandexTime `json:"updatedAt"`
}

// yandexChatsResponse is the success body of the chat list endpoint
type yandexChatsResponse struct {
	Status string `json:"status"`
	Result struct {
		Chats  []yandexChatPayload `json:"chats"`
		Paging yandexPaging        `json:"paging"`
	} `json:"result"`
}

// toDomain converts the raw chat to a normalized summary
func (p *yandexChatPayload) toDomain() marketplace.ChatSummary {
	return marketplace.ChatSummary{
		ChatID:    p.ChatID,
		OrderID:   p.OrderID,
		Status:    marketplace.ChatStatus(p.Status),
		Type:      marketplace.ChatType(p.Type),
		CreatedAt: p.CreatedAt.Time,
		UpdatedAt: p.UpdatedAt.Time,
	}
}

// ---------------------------------------------------------------------------
// Chat history
// ---------------------------------------------------------------------------

// yandexChatHistoryRequest is the body of POST /businesses/{id}/chats/history
type yandexChatHistoryRequest struct {
	// MessageIDFrom requests all messages starting from this identifier
	MessageIDFrom int64 `json:"messageIdFrom"`
}

// yandexMessagePayload is one message of the chat history
type yandexMessagePayload struct {
	MessageID int64                 `json:"messageId" validate:"required"`
	Sender    string                `json:"sender" validate:"required"`
	Message   string                `json:"message"`
	Payload   []yandexMessageAttach `json:"payload"`
	CreatedAt yandexTime            `json:"createdAt"`
}

// yandexMessageAttach is one attachment of a chat message
type yandexMessageAttach struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// yandexChatHistoryResponse is the success body of the chat history endpoint
type yandexChatHistoryResponse struct {
	Status string `json:"status"`
	Result struct {
		OrderID  *int64                 `json:"orderId"`
		Messages []yandexMessagePayload `json:"messages"`
		Paging   yandexPaging           `json:"paging"`
	} `json:"result"`
}

// toDomain converts the raw message, folding attachments into the text
func (p *yandexMessagePayload) toDomain() marketplace.ChatMessage {
	text := strings.TrimSpace(p.Message)
	for _, attach := range p.Payload {
		name := attach.Name
		if name == "" {
			name = attach.URL
		}
		text = strings.TrimSpace(text + " " + name + " (" + attach.URL + ")")
	}

	return marketplace.ChatMessage{
		MessageID: p.MessageID,
		Sender:    marketplace.Sender(p.Sender),
		Text:      text,
		CreatedAt: p.CreatedAt.Time,
	}
}

// yandexSendMessageRequest is the body of POST /businesses/{id}/chats/message
type yandexSendMessageRequest struct {
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// Reviews (goods feedback)
// ---------------------------------------------------------------------------

// yandexReviewsRequest is the body of POST /businesses/{id}/goods-feedback.
// Paid reviews (earned Plus points) are always excluded: replying to them
// is not allowed by the marketplace.
type yandexReviewsRequest struct {
	DateTimeFrom   string `json:"dateTimeFrom,omitempty"`
	ReactionStatus string `json:"reactionStatus,omitempty"`
	Paid           bool   `json:"paid"`
}

// yandexReviewPayload is one review of the feedback list
type yandexReviewPayload struct {
	FeedbackID   int64      `json:"feedbackId" validate:"required"`
	NeedReaction bool       `json:"needReaction"`
	Author       string     `json:"author"`
	CreatedAt    yandexTime `json:"createdAt"`
	Identifiers  struct {
		OrderID *int64 `json:"orderId"`
		ModelID *int64 `json:"modelId"`
	} `json:"identifiers"`
	Description struct {
		Comment       string `json:"comment"`
		Advantages    string `json:"advantages"`
		Disadvantages string `json:"disadvantages"`
	} `json:"description"`
	Statistics struct {
		Rating int  `json:"rating"`
		Paid   bool `json:"paid"`
	} `json:"statistics"`
}

// yandexReviewsResponse is the success body of the feedback list endpoint
type yandexReviewsResponse struct {
	Status string `json:"status"`
	Result struct {
		Feedbacks []yandexReviewPayload `json:"feedbacks"`
		Paging    yandexPaging          `json:"paging"`
	} `json:"result"`
}

// anonymousAuthor is the display name for reviews without an author
const anonymousAuthor = "Anonymous"

// toDomain normalizes the raw review. The text is the composite of the
// comment plus advantages/disadvantages; empty means nothing actionable.
func (p *yandexReviewPayload) toDomain() marketplace.Review {
	var parts []string
	if c := strings.TrimSpace(p.Description.Comment); c != "" {
		parts = append(parts, c)
	}
	if a := strings.TrimSpace(p.Description.Advantages); a != "" {
		parts = append(parts, "(+) "+a)
	}
	if d := strings.TrimSpace(p.Description.Disadvantages); d != "" {
		parts = append(parts, "(-) "+d)
	}

	author := strings.TrimSpace(p.Author)
	if author == "" {
		author = anonymousAuthor
	}

	var title string
	if p.Identifiers.OrderID != nil {
		title = fmt.Sprintf("Order #%d", *p.Identifiers.OrderID)
	}

	return marketplace.Review{
		ReviewID:     p.FeedbackID,
		OrderID:      p.Identifiers.OrderID,
		Title:        title,
		Author:       author,
		Text:         strings.Join(parts, " "),
		Rating:       p.Statistics.Rating,
		NeedReaction: p.NeedReaction,
		CreatedAt:    p.CreatedAt.Time,
	}
}

// yandexCommentsRequest is the body of POST /businesses/{id}/goods-feedback/comments
type yandexCommentsRequest struct {
	FeedbackID int64 `json:"feedbackId"`
}

// yandexCommentPayload is one comment of a review thread
type yandexCommentPayload struct {
	ID       int64  `json:"id" validate:"required"`
	ParentID *int64 `json:"parentId"`
	Text     string `json:"text"`
	Status   string `json:"status"`
	Author   struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"author"`
	CreatedAt yandexTime `json:"createdAt"`
}

// yandexCommentsResponse is the success body of the comments endpoint
type yandexCommentsResponse struct {
	Status string `json:"status"`
	Result struct {
		Comments []yandexCommentPayload `json:"comments"`
		Paging   yandexPaging           `json:"paging"`
	} `json:"result"`
}

// toDomain converts the raw comment
func (p *yandexCommentPayload) toDomain() marketplace.Comment {
	return marketplace.Comment{
		CommentID:  p.ID,
		ParentID:   p.ParentID,
		AuthorName: p.Author.Name,
		AuthorType: marketplace.CommentAuthorType(p.Author.Type),
		Text:       p.Text,
		CreatedAt:  p.CreatedAt.Time,
	}
}

// yandexReviewReplyRequest is the body of POST /businesses/{id}/goods-feedback/comments/update
type yandexReviewReplyRequest struct {
	FeedbackID int64 `json:"feedbackId"`
	Comment    struct {
		Text string `json:"text"`
	} `json:"comment"`
}

// ---------------------------------------------------------------------------
// Questions
// ---------------------------------------------------------------------------

// yandexQuestionsRequest is the body of POST /v1/businesses/{id}/goods-questions
type yandexQuestionsRequest struct {
	Limit int `json:"limit"`
}

// yandexQuestionPayload is one product question
type yandexQuestionPayload struct {
	QuestionIdentifiers struct {
		ID      int64  `json:"id" validate:"required"`
		OfferID string `json:"offerId"`
	} `json:"questionIdentifiers"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	Text      string     `json:"text"`
	CreatedAt yandexTime `json:"createdAt"`
}

// yandexQuestionsResponse is the success body of the questions endpoint
type yandexQuestionsResponse struct {
	Status string `json:"status"`
	Result struct {
		Questions []yandexQuestionPayload `json:"questions"`
		Paging    yandexPaging            `json:"paging"`
	} `json:"result"`
}

// toDomain converts the raw question
func (p *yandexQuestionPayload) toDomain() marketplace.Question {
	return marketplace.Question{
		QuestionID: p.QuestionIdentifiers.ID,
		Article:    p.QuestionIdentifiers.OfferID,
		AuthorName: p.Author.Name,
		Text:       p.Text,
		CreatedAt:  p.CreatedAt.Time,
	}
}

// yandexAnswerRequest is the body of POST /v1/businesses/{id}/goods-questions/update
type yandexAnswerRequest struct {
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
}
