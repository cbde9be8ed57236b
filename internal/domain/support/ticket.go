package support

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidExternalID = shared.NewDomainError("SUPPORT_INVALID_EXTERNAL_ID", "External ticket ID must not be empty")
	ErrInvalidChannel    = shared.NewDomainError("SUPPORT_INVALID_CHANNEL", "Unknown support channel")
	ErrEmptyMessageText  = shared.NewDomainError("SUPPORT_EMPTY_MESSAGE", "Message text must not be empty")
	ErrNoMessages        = shared.NewDomainError("SUPPORT_NO_MESSAGES", "Ticket has no messages")
)

// NoSubjectTitle is the fallback title for tickets without a resolvable subject
const NoSubjectTitle = "No subject"

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status represents the ticket lifecycle state.
//
// The status carries a dual meaning inherited from the source system:
// Open means the conversation awaits triage (new inbound content arrived),
// Closed means the content is finalized AND, when the last message is
// locally authored, ready to be dispatched to the marketplace. The outbound
// reply handlers only act on Closed tickets.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Priority
// ---------------------------------------------------------------------------

// Priority represents the triage priority of a ticket
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid returns true if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// Channel
// ---------------------------------------------------------------------------

// Channel identifies which marketplace resource a ticket mirrors.
// Chat, review and question tickets live in disjoint external-ID spaces,
// so sync handlers for different channels never race on the same ticket.
type Channel string

const (
	ChannelChat     Channel = "CHAT"
	ChannelReview   Channel = "REVIEW"
	ChannelQuestion Channel = "QUESTION"
)

// IsValid returns true if the channel is valid
func (c Channel) IsValid() bool {
	switch c {
	case ChannelChat, ChannelReview, ChannelQuestion:
		return true
	default:
		return false
	}
}

// String returns the string representation of Channel
func (c Channel) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Direction
// ---------------------------------------------------------------------------

// Direction indicates whether a message came from the customer side
// (Inbound) or the seller side (Outbound)
type Direction string

const (
	DirectionInbound  Direction = "IN"
	DirectionOutbound Direction = "OUT"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// Message
// ---------------------------------------------------------------------------

// Message is one entry in a ticket's conversation.
//
// ExternalID nil means the message was authored locally and has not been
// sent to the marketplace yet. A message with a non-nil ExternalID is
// immutable: it is never re-sent and never re-ingested as new.
type Message struct {
	ID         uuid.UUID
	ExternalID *string
	Name       string
	Text       string
	Direction  Direction
	Seq        int
	CreatedAt  time.Time
}

// IsLocal reports whether the message was authored locally and not yet sent
func (m *Message) IsLocal() bool {
	return m.ExternalID == nil
}

// ---------------------------------------------------------------------------
// Ticket aggregate
// ---------------------------------------------------------------------------

// Ticket is the local aggregate representing one external conversation
// (chat, review thread or product question). It is created on the first
// sync of a new external entity, merged additively by every subsequent
// sync pass, and never deleted by the sync subsystem.
type Ticket struct {
	shared.BaseEntity
	ExternalID   string
	Title        string
	Status       Status
	Priority     Priority
	Channel      Channel
	ProfileID    uuid.UUID
	CredentialID uuid.UUID
	Messages     []Message

	externalSeen map[string]struct{}
}

// NewTicket creates a new ticket for a freshly discovered external entity.
// New tickets start Open with Low priority, matching first-contact triage.
func NewTicket(channel Channel, externalID, title string, profileID, credentialID uuid.UUID) (*Ticket, error) {
	if !channel.IsValid() {
		return nil, ErrInvalidChannel
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrInvalidExternalID
	}
	if strings.TrimSpace(title) == "" {
		title = NoSubjectTitle
	}

	return &Ticket{
		BaseEntity:   shared.NewBaseEntity(),
		ExternalID:   externalID,
		Title:        title,
		Status:       StatusOpen,
		Priority:     PriorityLow,
		Channel:      channel,
		ProfileID:    profileID,
		CredentialID: credentialID,
		Messages:     make([]Message, 0),
	}, nil
}

// seen returns the lazily built external-message-ID index
func (t *Ticket) seen() map[string]struct{} {
	if t.externalSeen == nil {
		t.externalSeen = make(map[string]struct{}, len(t.Messages))
		for i := range t.Messages {
			if ext := t.Messages[i].ExternalID; ext != nil {
				t.externalSeen[*ext] = struct{}{}
			}
		}
	}
	return t.externalSeen
}

// HasExternalMessage reports whether a message with the given external ID
// is already part of the conversation
func (t *Ticket) HasExternalMessage(externalID string) bool {
	_, ok := t.seen()[externalID]
	return ok
}

// AppendExternal appends a marketplace-authored message. Returns false when
// a message with the same external ID is already present; the merge is
// additive-only and the existing message is left untouched.
func (t *Ticket) AppendExternal(externalID, name, text string, direction Direction, createdAt time.Time) (bool, error) {
	if strings.TrimSpace(externalID) == "" {
		return false, ErrInvalidExternalID
	}
	if strings.TrimSpace(text) == "" {
		return false, ErrEmptyMessageText
	}
	if t.HasExternalMessage(externalID) {
		return false, nil
	}

	ext := externalID
	t.Messages = append(t.Messages, Message{
		ID:         uuid.New(),
		ExternalID: &ext,
		Name:       name,
		Text:       text,
		Direction:  direction,
		Seq:        t.nextSeq(),
		CreatedAt:  createdAt,
	})
	t.seen()[externalID] = struct{}{}
	t.Touch()
	return true, nil
}

// AppendLocalReply appends a locally-authored outbound message. It carries
// no external ID until the outbound handler delivers it.
func (t *Ticket) AppendLocalReply(name, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessageText
	}

	t.Messages = append(t.Messages, Message{
		ID:        uuid.New(),
		Name:      name,
		Text:      text,
		Direction: DirectionOutbound,
		Seq:       t.nextSeq(),
		CreatedAt: time.Now(),
	})
	t.Touch()
	return &t.Messages[len(t.Messages)-1], nil
}

// nextSeq returns the sequence number for the next appended message
func (t *Ticket) nextSeq() int {
	if len(t.Messages) == 0 {
		return 1
	}
	return t.Messages[len(t.Messages)-1].Seq + 1
}

// LastMessage returns the newest message, or nil for an empty conversation.
// The tail of the ordered slice keeps this O(1); the outbound handlers call
// it on every ticket-saved event.
func (t *Ticket) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Open forces the ticket back to Open. Sync handlers call this whenever new
// inbound content arrives so an agent re-triages the conversation.
func (t *Ticket) Open() {
	t.Status = StatusOpen
	t.Touch()
}

// Close marks the content finalized and, when the last message is local,
// ready for outbound dispatch
func (t *Ticket) Close() {
	t.Status = StatusClosed
	t.Touch()
}

// MessageCount returns the number of messages in the conversation
func (t *Ticket) MessageCount() int {
	return len(t.Messages)
}
