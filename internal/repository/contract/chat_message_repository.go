package contract

import (
	"context"

	"agent-catalog-be/internal/entity"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// Create inserts the message. Inserting an id that already exists is a no-op reported as created=false.
	Create(ctx context.Context, message *entity.ChatMessage) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ChatMessage, error)
	// FindBySession returns the transcript ordered by creation time, then insertion sequence.
	FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error)
	CountBySession(ctx context.Context, sessionId uuid.UUID) (int64, error)
}
