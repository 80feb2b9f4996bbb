package conversation

import (
	"context"
	"fmt"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/llm"

	"github.com/google/uuid"
)

// DefaultHistoryWindow bounds how many stored messages are replayed to the model.
const DefaultHistoryWindow = 20

// AssistantTurn is a fully assembled model reply. Id is chosen before persisting so
// retries of the same turn collapse onto one row. CreatedAt is the completion time;
// a replayed turn keeps it so it stays ahead of later user turns in the transcript.
type AssistantTurn struct {
	Id             uuid.UUID
	SessionId      uuid.UUID
	Content        string
	TokensUsed     int
	ResponseTimeMs int
	CreatedAt      time.Time
}

// Store appends chat turns to a session transcript.
type Store struct {
	factory unitofwork.RepositoryFactory
}

func NewStore(factory unitofwork.RepositoryFactory) *Store {
	return &Store{factory: factory}
}

func (s *Store) AppendUserTurn(ctx context.Context, sessionId uuid.UUID, content string) (*entity.ChatMessage, error) {
	msg := &entity.ChatMessage{
		Id:        uuid.New(),
		SessionId: sessionId,
		Role:      constant.ChatMessageRoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}

	uow := s.factory.NewUnitOfWork(ctx)
	if _, err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}
	return msg, nil
}

// AppendAssistantTurn reports created=false when the turn was already stored.
func (s *Store) AppendAssistantTurn(ctx context.Context, turn AssistantTurn) (bool, error) {
	tokens := turn.TokensUsed
	responseTime := turn.ResponseTimeMs
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	msg := &entity.ChatMessage{
		Id:             turn.Id,
		SessionId:      turn.SessionId,
		Role:           constant.ChatMessageRoleAssistant,
		Content:        turn.Content,
		TokensUsed:     &tokens,
		ResponseTimeMs: &responseTime,
		CreatedAt:      createdAt,
	}

	uow := s.factory.NewUnitOfWork(ctx)
	created, err := uow.ChatMessageRepository().Create(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("append assistant turn: %w", err)
	}
	return created, nil
}

func (s *Store) Transcript(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.ChatMessageRepository().FindBySession(ctx, sessionId)
}

// BuildHistory prepends the system prompt to the newest window of stored turns.
// Stored system messages are skipped; the system prompt is synthesized per request.
func BuildHistory(systemPrompt string, transcript []*entity.ChatMessage, window int) []llm.Message {
	turns := make([]*entity.ChatMessage, 0, len(transcript))
	for _, msg := range transcript {
		if msg.Role == constant.ChatMessageRoleSystem {
			continue
		}
		turns = append(turns, msg)
	}
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	history := make([]llm.Message, 0, len(turns)+1)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleSystem, Content: systemPrompt})
	for _, msg := range turns {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}
