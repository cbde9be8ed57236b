package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/supportdesk/backend/internal/domain/marketplace"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// pageTokenParam is the query parameter carrying the pagination cursor
const pageTokenParam = "page_token"

// YandexAdapter implements the marketplace.Client port against the
// Yandex.Market partner API. Credentials are passed per call: one adapter
// serves every seller profile.
type YandexAdapter struct {
	config     *YandexConfig
	httpClient *http.Client
}

// NewYandexAdapter creates a new adapter with the given configuration
func NewYandexAdapter(config *YandexConfig) (*YandexAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &YandexAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// FetchChats lists the chats matching the type and status filters
func (a *YandexAdapter) FetchChats(ctx context.Context, cred marketplace.Credential, types []marketplace.ChatType, statuses []marketplace.ChatStatus) ([]marketplace.ChatSummary, error) {
	body := yandexChatsRequest{
		Types:    make([]string, len(types)),
		Statuses: make([]string, len(statuses)),
	}
	for i, t := range types {
		body.Types[i] = string(t)
	}
	for i, s := range statuses {
		body.Statuses[i] = string(s)
	}

	path := fmt.Sprintf("/businesses/%s/chats", cred.BusinessID)
	params := map[string]string{"businessId": cred.BusinessID}

	var chats []marketplace.ChatSummary
	pageToken := ""
	for {
		raw, err := a.doRequest(ctx, cred, "FetchChats", path, pageToken, body, params)
		if err != nil {
			return nil, err
		}

		var resp yandexChatsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Result.Chats {
			if err := validate.Struct(&resp.Result.Chats[i]); err != nil {
				return nil, fmt.Errorf("%w: chat record: %v", marketplace.ErrInvalidResponse, err)
			}
			chats = append(chats, resp.Result.Chats[i].toDomain())
		}

		pageToken = resp.Result.Paging.NextPageToken
		if pageToken == "" {
			return chats, nil
		}
	}
}

// FetchMessages returns a chat's full message history, oldest first
func (a *YandexAdapter) FetchMessages(ctx context.Context, cred marketplace.Credential, chatID int64) ([]marketplace.ChatMessage, error) {
	path := fmt.Sprintf("/businesses/%s/chats/history", cred.BusinessID)
	params := map[string]string{
		"businessId": cred.BusinessID,
		"chatId":     strconv.FormatInt(chatID, 10),
	}
	body := yandexChatHistoryRequest{MessageIDFrom: 1}

	var messages []marketplace.ChatMessage
	pageToken := ""
	for {
		raw, err := a.doRequestQuery(ctx, cred, "FetchMessages", path, url.Values{
			"chatId": []string{strconv.FormatInt(chatID, 10)},
		}, pageToken, body, params)
		if err != nil {
			return nil, err
		}

		var resp yandexChatHistoryResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Result.Messages {
			if err := validate.Struct(&resp.Result.Messages[i]); err != nil {
				return nil, fmt.Errorf("%w: message record: %v", marketplace.ErrInvalidResponse, err)
			}
			messages = append(messages, resp.Result.Messages[i].toDomain())
		}

		pageToken = resp.Result.Paging.NextPageToken
		if pageToken == "" {
			return messages, nil
		}
	}
}

// FetchReviews lists reviews created after since, filtered by reaction
// status. Paid reviews are excluded on the API side.
func (a *YandexAdapter) FetchReviews(ctx context.Context, cred marketplace.Credential, since time.Time, reaction marketplace.ReactionFilter) ([]marketplace.Review, error) {
	body := yandexReviewsRequest{
		Paid: false,
	}
	if !since.IsZero() {
		body.DateTimeFrom = since.UTC().Format(time.RFC3339)
	}
	if reaction != "" && reaction != marketplace.ReactionAll {
		body.ReactionStatus = string(reaction)
	}

	path := fmt.Sprintf("/businesses/%s/goods-feedback", cred.BusinessID)
	params := map[string]string{"businessId": cred.BusinessID}

	var reviews []marketplace.Review
	pageToken := ""
	for {
		raw, err := a.doRequest(ctx, cred, "FetchReviews", path, pageToken, body, params)
		if err != nil {
			return nil, err
		}

		var resp yandexReviewsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Result.Feedbacks {
			if err := validate.Struct(&resp.Result.Feedbacks[i]); err != nil {
				return nil, fmt.Errorf("%w: review record: %v", marketplace.ErrInvalidResponse, err)
			}
			reviews = append(reviews, resp.Result.Feedbacks[i].toDomain())
		}

		pageToken = resp.Result.Paging.NextPageToken
		if pageToken == "" {
			return reviews, nil
		}
	}
}

// FetchComments returns the comment thread of a review
func (a *YandexAdapter) FetchComments(ctx context.Context, cred marketplace.Credential, reviewID int64) ([]marketplace.Comment, error) {
	path := fmt.Sprintf("/businesses/%s/goods-feedback/comments", cred.BusinessID)
	params := map[string]string{
		"businessId": cred.BusinessID,
		"feedbackId": strconv.FormatInt(reviewID, 10),
	}
	body := yandexCommentsRequest{FeedbackID: reviewID}

	var comments []marketplace.Comment
	pageToken := ""
	for {
		raw, err := a.doRequest(ctx, cred, "FetchComments", path, pageToken, body, params)
		if err != nil {
			return nil, err
		}

		var resp yandexCommentsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Result.Comments {
			if err := validate.Struct(&resp.Result.Comments[i]); err != nil {
				return nil, fmt.Errorf("%w: comment record: %v", marketplace.ErrInvalidResponse, err)
			}
			comments = append(comments, resp.Result.Comments[i].toDomain())
		}

		pageToken = resp.Result.Paging.NextPageToken
		if pageToken == "" {
			return comments, nil
		}
	}
}

// FetchQuestions lists unanswered product questions
func (a *YandexAdapter) FetchQuestions(ctx context.Context, cred marketplace.Credential) ([]marketplace.Question, error) {
	path := fmt.Sprintf("/v1/businesses/%s/goods-questions", cred.BusinessID)
	params := map[string]string{"businessId": cred.BusinessID}
	body := yandexQuestionsRequest{Limit: a.config.MaxPageSize}

	var questions []marketplace.Question
	pageToken := ""
	for {
		raw, err := a.doRequest(ctx, cred, "FetchQuestions", path, pageToken, body, params)
		if err != nil {
			return nil, err
		}

		var resp yandexQuestionsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Result.Questions {
			if err := validate.Struct(&resp.Result.Questions[i]); err != nil {
				return nil, fmt.Errorf("%w: question record: %v", marketplace.ErrInvalidResponse, err)
			}
			questions = append(questions, resp.Result.Questions[i].toDomain())
		}

		pageToken = resp.Result.Paging.NextPageToken
		if pageToken == "" {
			return questions, nil
		}
	}
}

// SendChatMessage posts a seller message into a chat. A rejection because
// the remote chat is already closed is reported as success: there is
// nothing left to deliver.
func (a *YandexAdapter) SendChatMessage(ctx context.Context, cred marketplace.Credential, chatID int64, text string) error {
	path := fmt.Sprintf("/businesses/%s/chats/message", cred.BusinessID)
	params := map[string]string{
		"businessId": cred.BusinessID,
		"chatId":     strconv.FormatInt(chatID, 10),
	}

	_, err := a.doRequestQuery(ctx, cred, "SendChatMessage", path, url.Values{
		"chatId": []string{strconv.FormatInt(chatID, 10)},
	}, "", yandexSendMessageRequest{Message: text}, params)

	if isClosedChatError(err) {
		return nil
	}
	return err
}

// SendReviewComment posts a seller comment under a review
func (a *YandexAdapter) SendReviewComment(ctx context.Context, cred marketplace.Credential, reviewID int64, text string) error {
	path := fmt.Sprintf("/businesses/%s/goods-feedback/comments/update", cred.BusinessID)
	params := map[string]string{
		"businessId": cred.BusinessID,
		"feedbackId": strconv.FormatInt(reviewID, 10),
	}

	body := yandexReviewReplyRequest{FeedbackID: reviewID}
	body.Comment.Text = text

	_, err := a.doRequest(ctx, cred, "SendReviewComment", path, "", body, params)
	return err
}

// AnswerQuestion posts a seller answer to a product question
func (a *YandexAdapter) AnswerQuestion(ctx context.Context, cred marketplace.Credential, questionID int64, text string) error {
	path := fmt.Sprintf("/v1/businesses/%s/goods-questions/update", cred.BusinessID)
	params := map[string]string{
		"businessId": cred.BusinessID,
		"questionId": strconv.FormatInt(questionID, 10),
	}

	_, err := a.doRequest(ctx, cred, "AnswerQuestion", path, "", yandexAnswerRequest{
		QuestionID: questionID,
		Text:       text,
	}, params)
	return err
}

// doRequest performs a POST request with only pagination query parameters
func (a *YandexAdapter) doRequest(ctx context.Context, cred marketplace.Credential, op, path, pageToken string, body any, params map[string]string) ([]byte, error) {
	return a.doRequestQuery(ctx, cred, op, path, url.Values{}, pageToken, body, params)
}

// doRequestQuery performs a POST request against the partner API
func (a *YandexAdapter) doRequestQuery(ctx context.Context, cred marketplace.Credential, op, path string, query url.Values, pageToken string, body any, params map[string]string) ([]byte, error) {
	if cred.BusinessID == "" || cred.Token == "" {
		return nil, marketplace.ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("yandex: failed to marshal request: %w", err)
	}

	if pageToken != "" {
		query.Set(pageTokenParam, pageToken)
	}
	if a.config.MaxPageSize > 0 && query.Get("limit") == "" {
		query.Set("limit", strconv.Itoa(a.config.MaxPageSize))
	}

	endpoint := a.config.BaseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("yandex: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", cred.Token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketplace.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("yandex: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", marketplace.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", marketplace.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, newRequestError(op, resp.StatusCode, raw, params)
	}

	return raw, nil
}

// newRequestError builds a RequestError from a non-200 response body
func newRequestError(op string, status int, raw []byte, params map[string]string) *marketplace.RequestError {
	var envelope yandexErrorEnvelope
	_ = json.Unmarshal(raw, &envelope)
	apiErr := envelope.first()

	return &marketplace.RequestError{
		Op:         op,
		StatusCode: status,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
		Params:     params,
	}
}

// isClosedChatError reports whether a send failure means the remote chat is
// already closed
func isClosedChatError(err error) bool {
	if err == nil {
		return false
	}
	var reqErr *marketplace.RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return strings.Contains(strings.ToLower(reqErr.Message), "closed")
}

// Ensure YandexAdapter implements the Client port
var _ marketplace.Client = (*YandexAdapter)(nil)
