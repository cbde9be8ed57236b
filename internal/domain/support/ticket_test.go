package support

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTicket(t *testing.T, channel Channel) *Ticket {
	t.Helper()

	ticket, err := NewTicket(channel, "chat-101", "Order #555", uuid.New(), uuid.New())
	require.NoError(t, err)
	return ticket
}

func TestNewTicket(t *testing.T) {
	profileID := uuid.New()
	credentialID := uuid.New()

	t.Run("creates open low-priority ticket", func(t *testing.T) {
		ticket, err := NewTicket(ChannelChat, "chat-101", "Order #555", profileID, credentialID)
		require.NoError(t, err)

		assert.Equal(t, StatusOpen, ticket.Status)
		assert.Equal(t, PriorityLow, ticket.Priority)
		assert.Equal(t, ChannelChat, ticket.Channel)
		assert.Equal(t, "chat-101", ticket.ExternalID)
		assert.Equal(t, "Order #555", ticket.Title)
		assert.Equal(t, profileID, ticket.ProfileID)
		assert.Equal(t, credentialID, ticket.CredentialID)
		assert.Zero(t, ticket.MessageCount())
		assert.NotEqual(t, uuid.Nil, ticket.ID)
	})

	t.Run("blank title falls back to no subject", func(t *testing.T) {
		ticket, err := NewTicket(ChannelReview, "review-9", "   ", profileID, credentialID)
		require.NoError(t, err)
		assert.Equal(t, NoSubjectTitle, ticket.Title)
	})

	t.Run("rejects empty external ID", func(t *testing.T) {
		_, err := NewTicket(ChannelChat, "  ", "Order #555", profileID, credentialID)
		assert.ErrorIs(t, err, ErrInvalidExternalID)
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		_, err := NewTicket(Channel("FAX"), "chat-101", "Order #555", profileID, credentialID)
		assert.ErrorIs(t, err, ErrInvalidChannel)
	})
}

func TestTicket_AppendExternal(t *testing.T) {
	now := time.Now()

	t.Run("appends inbound message with sequence", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelChat)

		added, err := ticket.AppendExternal("msg-1", "Customer", "Where is my parcel?", DirectionInbound, now)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = ticket.AppendExternal("msg-2", "Seller", "Shipped yesterday", DirectionOutbound, now.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, added)

		require.Equal(t, 2, ticket.MessageCount())
		assert.Equal(t, 1, ticket.Messages[0].Seq)
		assert.Equal(t, 2, ticket.Messages[1].Seq)
		assert.Equal(t, DirectionInbound, ticket.Messages[0].Direction)
		assert.False(t, ticket.Messages[0].IsLocal())
	})

	t.Run("same external ID is skipped without touching the original", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelChat)

		added, err := ticket.AppendExternal("msg-1", "Customer", "first text", DirectionInbound, now)
		require.NoError(t, err)
		require.True(t, added)

		added, err = ticket.AppendExternal("msg-1", "Customer", "changed text", DirectionInbound, now)
		require.NoError(t, err)
		assert.False(t, added)

		require.Equal(t, 1, ticket.MessageCount())
		assert.Equal(t, "first text", ticket.Messages[0].Text, "existing message must not be rewritten")
	})

	t.Run("rejects empty text", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelChat)

		_, err := ticket.AppendExternal("msg-1", "Customer", "  ", DirectionInbound, now)
		assert.ErrorIs(t, err, ErrEmptyMessageText)
		assert.Zero(t, ticket.MessageCount())
	})

	t.Run("rejects empty external ID", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelChat)

		_, err := ticket.AppendExternal("", "Customer", "hello", DirectionInbound, now)
		assert.ErrorIs(t, err, ErrInvalidExternalID)
	})

	t.Run("dedup index survives a reloaded message slice", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelChat)
		ext := "msg-7"
		ticket.Messages = []Message{{
			ID:         uuid.New(),
			ExternalID: &ext,
			Name:       "Customer",
			Text:       "loaded from store",
			Direction:  DirectionInbound,
			Seq:        1,
			CreatedAt:  now,
		}}

		added, err := ticket.AppendExternal("msg-7", "Customer", "loaded from store", DirectionInbound, now)
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, 1, ticket.MessageCount())
	})
}

func TestTicket_AppendLocalReply(t *testing.T) {
	t.Run("local reply has no external ID", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelReview)

		msg, err := ticket.AppendLocalReply("admin", "Thank you for the feedback!")
		require.NoError(t, err)

		assert.True(t, msg.IsLocal())
		assert.Equal(t, DirectionOutbound, msg.Direction)
		assert.Equal(t, 1, msg.Seq)
		assert.Same(t, msg, ticket.LastMessage())
	})

	t.Run("rejects empty text", func(t *testing.T) {
		ticket := newTestTicket(t, ChannelReview)

		_, err := ticket.AppendLocalReply("admin", "")
		assert.ErrorIs(t, err, ErrEmptyMessageText)
	})
}

func TestTicket_LastMessage(t *testing.T) {
	ticket := newTestTicket(t, ChannelChat)
	assert.Nil(t, ticket.LastMessage())

	_, err := ticket.AppendExternal("msg-1", "Customer", "first", DirectionInbound, time.Now())
	require.NoError(t, err)
	_, err = ticket.AppendExternal("msg-2", "Customer", "second", DirectionInbound, time.Now())
	require.NoError(t, err)

	last := ticket.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "second", last.Text)
}

func TestTicket_StatusTransitions(t *testing.T) {
	ticket := newTestTicket(t, ChannelQuestion)

	ticket.Close()
	assert.Equal(t, StatusClosed, ticket.Status)

	ticket.Open()
	assert.Equal(t, StatusOpen, ticket.Status)
}

func TestEnums(t *testing.T) {
	assert.True(t, StatusOpen.IsValid())
	assert.True(t, StatusClosed.IsValid())
	assert.False(t, Status("PENDING").IsValid())

	assert.True(t, PriorityHigh.IsValid())
	assert.False(t, Priority("URGENT").IsValid())

	assert.True(t, ChannelQuestion.IsValid())
	assert.False(t, Channel("EMAIL").IsValid())

	assert.True(t, DirectionOutbound.IsValid())
	assert.False(t, Direction("SIDEWAYS").IsValid())

	assert.Equal(t, "OPEN", StatusOpen.String())
	assert.Equal(t, "REVIEW", ChannelReview.String())
}
