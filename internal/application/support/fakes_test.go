package support

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/shared"
	"github.com/supportdesk/backend/internal/domain/support"
	"github.com/supportdesk/backend/internal/infrastructure/cache"
)

// ---------------------------------------------------------------------------
// Marketplace client fake
// ---------------------------------------------------------------------------

type sentRecord struct {
	externalID int64
	text       string
}

type fakeClient struct {
	mu sync.Mutex

	chats     []marketplace.ChatSummary
	messages  map[int64][]marketplace.ChatMessage
	reviews   []marketplace.Review
	comments  map[int64][]marketplace.Comment
	questions []marketplace.Question

	fetchChatsErr     error
	fetchMessagesErr  error
	fetchReviewsErr   error
	fetchCommentsErr  error
	fetchQuestionsErr error
	sendErr           error

	fetchChatsCalls     int
	fetchQuestionsCalls int
	lastReviewSince     time.Time
	lastReaction        marketplace.ReactionFilter

	sentChatMessages   []sentRecord
	sentReviewComments []sentRecord
	sentAnswers        []sentRecord
}

func (c *fakeClient) FetchChats(ctx context.Context, cred marketplace.Credential, types []marketplace.ChatType, statuses []marketplace.ChatStatus) ([]marketplace.ChatSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchChatsCalls++
	if c.fetchChatsErr != nil {
		return nil, c.fetchChatsErr
	}
	return c.chats, nil
}

func (c *fakeClient) FetchMessages(ctx context.Context, cred marketplace.Credential, chatID int64) ([]marketplace.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchMessagesErr != nil {
		return nil, c.fetchMessagesErr
	}
	return c.messages[chatID], nil
}

func (c *fakeClient) FetchReviews(ctx context.Context, cred marketplace.Credential, since time.Time, reaction marketplace.ReactionFilter) ([]marketplace.Review, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReviewSince = since
	c.lastReaction = reaction
	if c.fetchReviewsErr != nil {
		return nil, c.fetchReviewsErr
	}
	return c.reviews, nil
}

func (c *fakeClient) FetchComments(ctx context.Context, cred marketplace.Credential, reviewID int64) ([]marketplace.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchCommentsErr != nil {
		return nil, c.fetchCommentsErr
	}
	return c.comments[reviewID], nil
}

func (c *fakeClient) FetchQuestions(ctx context.Context, cred marketplace.Credential) ([]marketplace.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchQuestionsCalls++
	if c.fetchQuestionsErr != nil {
		return nil, c.fetchQuestionsErr
	}
	return c.questions, nil
}

func (c *fakeClient) SendChatMessage(ctx context.Context, cred marketplace.Credential, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentChatMessages = append(c.sentChatMessages, sentRecord{chatID, text})
	return nil
}

func (c *fakeClient) SendReviewComment(ctx context.Context, cred marketplace.Credential, reviewID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentReviewComments = append(c.sentReviewComments, sentRecord{reviewID, text})
	return nil
}

func (c *fakeClient) AnswerQuestion(ctx context.Context, cred marketplace.Credential, questionID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentAnswers = append(c.sentAnswers, sentRecord{questionID, text})
	return nil
}

var _ marketplace.Client = (*fakeClient)(nil)

// ---------------------------------------------------------------------------
// Ticket repository fake
// ---------------------------------------------------------------------------

// memTicketRepo mimics the gorm repository's contract: last-write-wins on
// the ticket row, insert-only messages, deep copies on load so callers never
// share state with the store.
type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*support.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[uuid.UUID]*support.Ticket)}
}

func cloneTicket(t *support.Ticket) *support.Ticket {
	msgs := make([]support.Message, len(t.Messages))
	copy(msgs, t.Messages)
	return &support.Ticket{
		BaseEntity:   t.BaseEntity,
		ExternalID:   t.ExternalID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		Channel:      t.Channel,
		ProfileID:    t.ProfileID,
		CredentialID: t.CredentialID,
		Messages:     msgs,
	}
}

func (r *memTicketRepo) FindByID(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (r *memTicketRepo) FindByExternalID(ctx context.Context, channel support.Channel, externalID string) (*support.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.Channel == channel && t.ExternalID == externalID {
			return cloneTicket(t), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTicketRepo) ExistsByExternalMessageID(ctx context.Context, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		for i := range t.Messages {
			if ext := t.Messages[i].ExternalID; ext != nil && *ext == externalID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memTicketRepo) ExistsByExternalID(ctx context.Context, channel support.Channel, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.Channel == channel && t.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memTicketRepo) Upsert(ctx context.Context, ticket *support.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tickets[ticket.ID]
	if !ok {
		r.tickets[ticket.ID] = cloneTicket(ticket)
		return nil
	}

	existing.Title = ticket.Title
	existing.Status = ticket.Status
	existing.Priority = ticket.Priority
	existing.UpdatedAt = ticket.UpdatedAt

	known := make(map[uuid.UUID]struct{}, len(existing.Messages))
	for i := range existing.Messages {
		known[existing.Messages[i].ID] = struct{}{}
	}
	for i := range ticket.Messages {
		if _, seen := known[ticket.Messages[i].ID]; !seen {
			existing.Messages = append(existing.Messages, ticket.Messages[i])
		}
	}
	return nil
}

func (r *memTicketRepo) mustFindByExternalID(t *testing.T, channel support.Channel, externalID string) *support.Ticket {
	t.Helper()
	ticket, err := r.FindByExternalID(context.Background(), channel, externalID)
	if err != nil {
		t.Fatalf("ticket %s/%s not found: %v", channel, externalID, err)
	}
	return ticket
}

var _ support.TicketRepository = (*memTicketRepo)(nil)

// ---------------------------------------------------------------------------
// Credential repository fake
// ---------------------------------------------------------------------------

type fakeCredRepo struct {
	creds []marketplace.Credential
}

func (r *fakeCredRepo) ActiveProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, c := range r.creds {
		if !c.Active {
			continue
		}
		if _, ok := seen[c.ProfileID]; ok {
			continue
		}
		seen[c.ProfileID] = struct{}{}
		ids = append(ids, c.ProfileID)
	}
	return ids, nil
}

func (r *fakeCredRepo) FindActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]marketplace.Credential, error) {
	var out []marketplace.Credential
	for _, c := range r.creds {
		if c.Active && c.ProfileID == profileID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCredRepo) FindByID(ctx context.Context, id uuid.UUID) (marketplace.Credential, error) {
	for _, c := range r.creds {
		if c.ID == id {
			return c, nil
		}
	}
	return marketplace.Credential{}, shared.ErrNotFound
}

var _ marketplace.CredentialRepository = (*fakeCredRepo)(nil)

// ---------------------------------------------------------------------------
// Event publisher fake
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

var _ shared.EventPublisher = (*recordingPublisher)(nil)

// ---------------------------------------------------------------------------
// Resolver and enqueuer fakes
// ---------------------------------------------------------------------------

type fakeOrders struct {
	byNumber map[string]uuid.UUID
}

func (f *fakeOrders) ResolveByOrder(ctx context.Context, orderNumber string) (uuid.UUID, error) {
	id, ok := f.byNumber[orderNumber]
	if !ok {
		return uuid.Nil, shared.ErrNotFound
	}
	return id, nil
}

type fakeTitles struct {
	byArticle map[string]string
}

func (f *fakeTitles) TitleByArticle(ctx context.Context, article string) (string, error) {
	title, ok := f.byArticle[article]
	if !ok {
		return "", shared.ErrNotFound
	}
	return title, nil
}

type enqueuedReply struct {
	channel  support.Channel
	ticketID uuid.UUID
	delay    time.Duration
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	replies []enqueuedReply
}

func (f *fakeEnqueuer) EnqueueReply(channel support.Channel, ticketID uuid.UUID, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, enqueuedReply{channel, ticketID, delay})
	return nil
}

// ---------------------------------------------------------------------------
// Test environment
// ---------------------------------------------------------------------------

type testEnv struct {
	client    *fakeClient
	credRepo  *fakeCredRepo
	tickets   *memTicketRepo
	dedup     shared.Deduplicator
	dedupCfg  shared.DedupConfig
	publisher *recordingPublisher
	orders    *fakeOrders
	titles    *fakeTitles
	enqueuer  *fakeEnqueuer
	logger    *zap.Logger

	profileID uuid.UUID
	cred      marketplace.Credential
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := cache.NewInMemoryDedupStore()
	t.Cleanup(func() { _ = store.Close() })

	profileID := uuid.New()
	cred := marketplace.Credential{
		ID:         uuid.New(),
		ProfileID:  profileID,
		BusinessID: "12345",
		Token:      "test-token",
		Active:     true,
	}

	return &testEnv{
		client: &fakeClient{
			messages: make(map[int64][]marketplace.ChatMessage),
			comments: make(map[int64][]marketplace.Comment),
		},
		credRepo:  &fakeCredRepo{creds: []marketplace.Credential{cred}},
		tickets:   newMemTicketRepo(),
		dedup:     cache.NewStoreDeduplicator(store),
		dedupCfg:  shared.DefaultDedupConfig(),
		publisher: &recordingPublisher{},
		orders:    &fakeOrders{byNumber: make(map[string]uuid.UUID)},
		titles:    &fakeTitles{byArticle: make(map[string]string)},
		enqueuer:  &fakeEnqueuer{},
		logger:    zap.NewNop(),

		profileID: profileID,
		cred:      cred,
	}
}

func (e *testEnv) chatSync() *ChatSyncHandler {
	return NewChatSyncHandler(e.client, e.credRepo, e.tickets, e.dedup, e.dedupCfg, e.orders, e.publisher, e.logger)
}

func (e *testEnv) reviewSync(pollInterval time.Duration) *ReviewSyncHandler {
	return NewReviewSyncHandler(e.client, e.credRepo, e.tickets, e.dedup, e.dedupCfg, pollInterval, e.publisher, e.logger)
}

func (e *testEnv) questionSync() *QuestionSyncHandler {
	return NewQuestionSyncHandler(e.client, e.credRepo, e.tickets, e.dedup, e.dedupCfg, e.titles, e.publisher, e.logger)
}

func (e *testEnv) autoReply() *AutoReplyHandler {
	return NewAutoReplyHandler(e.tickets, e.publisher, e.logger)
}
