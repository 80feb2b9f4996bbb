package contract

import (
	"context"

	"agent-catalog-be/internal/entity"

	"github.com/google/uuid"
)

type UsageLogRepository interface {
	// Append inserts the event unless one already exists for its MessageId.
	Append(ctx context.Context, log *entity.UsageLog) (bool, error)
	FindByMessageID(ctx context.Context, messageId uuid.UUID) (*entity.UsageLog, error)
	FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.UsageLog, error)
}
