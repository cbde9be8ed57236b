package support

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/domain/support"
)

func TestQuestionSyncCreatesTicketPerQuestion(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	env.titles.byArticle["SKU-1"] = "Wireless Kettle"
	env.client.questions = []marketplace.Question{
		{QuestionID: 7001, Article: "SKU-1", AuthorName: "Bob", Text: "Does it fit EU sockets?", CreatedAt: now},
	}

	require.NoError(t, env.questionSync().Sync(context.Background(), env.profileID))

	ticket := env.tickets.mustFindByExternalID(t, support.ChannelQuestion, "7001")
	assert.Equal(t, "Wireless Kettle", ticket.Title)
	assert.Equal(t, support.StatusOpen, ticket.Status)
	assert.Equal(t, env.profileID, ticket.ProfileID)

	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, "Bob", ticket.Messages[0].Name)
	assert.Equal(t, support.DirectionInbound, ticket.Messages[0].Direction)

	saved := env.publisher.byType(support.EventTypeTicketSaved)
	require.Len(t, saved, 1)
	assert.Equal(t, support.ChannelQuestion, saved[0].(*support.TicketSavedEvent).Channel)
}

func TestQuestionSyncSkipsUnknownArticle(t *testing.T) {
	env := newTestEnv(t)

	env.client.questions = []marketplace.Question{
		{QuestionID: 7002, Article: "UNKNOWN", AuthorName: "Bob", Text: "Is it blue?", CreatedAt: time.Now()},
	}

	require.NoError(t, env.questionSync().Sync(context.Background(), env.profileID))

	_, err := env.tickets.FindByExternalID(context.Background(), support.ChannelQuestion, "7002")
	assert.Error(t, err)
	assert.Empty(t, env.publisher.byType(support.EventTypeTicketSaved))
}

func TestQuestionSyncThrottlesWithinGuardWindow(t *testing.T) {
	env := newTestEnv(t)

	handler := env.questionSync()
	require.NoError(t, handler.Sync(context.Background(), env.profileID))
	require.NoError(t, handler.Sync(context.Background(), env.profileID))

	assert.Equal(t, 1, env.client.fetchQuestionsCalls,
		"the invocation guard is left to expire rather than released")
}

func TestQuestionSyncExistingTicketNotDuplicated(t *testing.T) {
	env := newTestEnv(t)

	env.titles.byArticle["SKU-2"] = "Desk Lamp"
	prior, err := support.NewTicket(support.ChannelQuestion, "7003", "Desk Lamp", env.profileID, env.cred.ID)
	require.NoError(t, err)
	_, err = prior.AppendExternal("7003", "Bob", "How bright?", support.DirectionInbound, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.tickets.Upsert(context.Background(), prior))

	env.client.questions = []marketplace.Question{
		{QuestionID: 7003, Article: "SKU-2", AuthorName: "Bob", Text: "How bright?", CreatedAt: time.Now()},
	}

	require.NoError(t, env.questionSync().Sync(context.Background(), env.profileID))

	ticket := env.tickets.mustFindByExternalID(t, support.ChannelQuestion, "7003")
	assert.Len(t, ticket.Messages, 1)
	assert.Empty(t, env.publisher.byType(support.EventTypeTicketSaved))
}
