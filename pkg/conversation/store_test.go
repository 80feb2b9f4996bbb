package conversation

import (
	"context"
	"testing"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewRepositoryFactory(memory.NewStore()))
	sessionId := uuid.New()

	_, err := store.AppendUserTurn(ctx, sessionId, "pregunta 1")
	require.NoError(t, err)
	_, err = store.AppendAssistantTurn(ctx, AssistantTurn{Id: uuid.New(), SessionId: sessionId, Content: "respuesta 1", TokensUsed: 10})
	require.NoError(t, err)
	_, err = store.AppendUserTurn(ctx, sessionId, "pregunta 2")
	require.NoError(t, err)
	_, err = store.AppendUserTurn(ctx, uuid.New(), "otra sesión")
	require.NoError(t, err)

	transcript, err := store.Transcript(ctx, sessionId)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, []string{"pregunta 1", "respuesta 1", "pregunta 2"},
		[]string{transcript[0].Content, transcript[1].Content, transcript[2].Content})
	assert.Equal(t, constant.ChatMessageRoleAssistant, transcript[1].Role)
	require.NotNil(t, transcript[1].TokensUsed)
	assert.Equal(t, 10, *transcript[1].TokensUsed)
	assert.Less(t, transcript[0].Sequence, transcript[1].Sequence)
}

func TestAppendAssistantTurnIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewRepositoryFactory(memory.NewStore()))
	turn := AssistantTurn{Id: uuid.New(), SessionId: uuid.New(), Content: "hola", TokensUsed: 5}

	created, err := store.AppendAssistantTurn(ctx, turn)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.AppendAssistantTurn(ctx, turn)
	require.NoError(t, err)
	assert.False(t, created)

	transcript, err := store.Transcript(ctx, turn.SessionId)
	require.NoError(t, err)
	assert.Len(t, transcript, 1)
}

func TestBuildHistory(t *testing.T) {
	transcript := []*entity.ChatMessage{
		{Role: constant.ChatMessageRoleUser, Content: "u1"},
		{Role: constant.ChatMessageRoleAssistant, Content: "a1"},
		{Role: constant.ChatMessageRoleSystem, Content: "ignored"},
		{Role: constant.ChatMessageRoleUser, Content: "u2"},
	}

	history := BuildHistory("sys", transcript, 2)

	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "sys"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "u2"},
	}, history)

	assert.Len(t, BuildHistory("sys", transcript, 0), 4)
}
