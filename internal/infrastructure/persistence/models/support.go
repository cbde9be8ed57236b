package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/support"
)

// TicketModel is the persistence model for the Ticket aggregate.
// External IDs are unique per channel; the composite index backs the
// FindByExternalID lookup every sync pass performs.
type TicketModel struct {
	BaseModel
	ExternalID   string         `gorm:"size:128;not null;uniqueIndex:idx_tickets_channel_external"`
	Channel      string         `gorm:"size:16;not null;uniqueIndex:idx_tickets_channel_external"`
	Title        string         `gorm:"size:255;not null"`
	Status       string         `gorm:"size:16;not null;index"`
	Priority     string         `gorm:"size:16;not null"`
	ProfileID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	CredentialID uuid.UUID      `gorm:"type:uuid;not null"`
	Messages     []MessageModel `gorm:"foreignKey:TicketID;references:ID"`
}

// TableName specifies the table name for TicketModel
func (TicketModel) TableName() string {
	return "support_tickets"
}

// ToDomain converts TicketModel to the domain Ticket aggregate.
// Messages are expected to be preloaded in sequence order.
func (m *TicketModel) ToDomain() *support.Ticket {
	messages := make([]support.Message, len(m.Messages))
	for i := range m.Messages {
		messages[i] = *m.Messages[i].ToDomain()
	}

	return &support.Ticket{
		BaseEntity:   m.BaseModel.ToDomain(),
		ExternalID:   m.ExternalID,
		Title:        m.Title,
		Status:       support.Status(m.Status),
		Priority:     support.Priority(m.Priority),
		Channel:      support.Channel(m.Channel),
		ProfileID:    m.ProfileID,
		CredentialID: m.CredentialID,
		Messages:     messages,
	}
}

// FromDomain populates TicketModel from the domain Ticket aggregate
func (m *TicketModel) FromDomain(t *support.Ticket) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.ExternalID = t.ExternalID
	m.Channel = t.Channel.String()
	m.Title = t.Title
	m.Status = t.Status.String()
	m.Priority = t.Priority.String()
	m.ProfileID = t.ProfileID
	m.CredentialID = t.CredentialID

	m.Messages = make([]MessageModel, len(t.Messages))
	for i := range t.Messages {
		m.Messages[i].FromDomain(&t.Messages[i], t.ID)
	}
}

// MessageModel is the persistence model for one conversation message.
// Rows are insert-only: the repository never updates or deletes them.
type MessageModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TicketID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ExternalID *string   `gorm:"size:128;uniqueIndex:idx_messages_external,where:external_id IS NOT NULL"`
	Name       string    `gorm:"size:255;not null"`
	Text       string    `gorm:"type:text;not null"`
	Direction  string    `gorm:"size:8;not null"`
	Seq        int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for MessageModel
func (MessageModel) TableName() string {
	return "support_ticket_messages"
}

// ToDomain converts MessageModel to the domain Message
func (m *MessageModel) ToDomain() *support.Message {
	return &support.Message{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Name:       m.Name,
		Text:       m.Text,
		Direction:  support.Direction(m.Direction),
		Seq:        m.Seq,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates MessageModel from the domain Message
func (m *MessageModel) FromDomain(msg *support.Message, ticketID uuid.UUID) {
	m.ID = msg.ID
	m.TicketID = ticketID
	m.ExternalID = msg.ExternalID
	m.Name = msg.Name
	m.Text = msg.Text
	m.Direction = msg.Direction.String()
	m.Seq = msg.Seq
	m.CreatedAt = msg.CreatedAt
}

// CredentialModel is the persistence model for marketplace seller
// credentials. Active deliberately carries no column default: gorm omits
// zero-valued fields with a default on insert, which would silently store a
// deactivated credential as active.
type CredentialModel struct {
	BaseModel
	ProfileID  uuid.UUID `gorm:"type:uuid;not null;index"`
	BusinessID string    `gorm:"size:64;not null"`
	Token      string    `gorm:"size:255;not null"`
	Active     bool      `gorm:"not null;index"`
}

// TableName specifies the table name for CredentialModel
func (CredentialModel) TableName() string {
	return "marketplace_credentials"
}

// ToDomain converts CredentialModel to the domain Credential
func (m *CredentialModel) ToDomain() marketplace.Credential {
	return marketplace.Credential{
		ID:         m.ID,
		ProfileID:  m.ProfileID,
		BusinessID: m.BusinessID,
		Token:      m.Token,
		Active:     m.Active,
	}
}

// FromDomain populates CredentialModel from the domain Credential
func (m *CredentialModel) FromDomain(c marketplace.Credential) {
	m.ID = c.ID
	m.ProfileID = c.ProfileID
	m.BusinessID = c.BusinessID
	m.Token = c.Token
	m.Active = c.Active
}
