package contract

import (
	"context"
	"time"

	"agent-catalog-be/internal/entity"

	"github.com/google/uuid"
)

type AgentSessionRepository interface {
	Create(ctx context.Context, session *entity.AgentSession) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error
	// FindOwned returns nil, nil when the session is missing or belongs to someone else.
	FindOwned(ctx context.Context, id, userId uuid.UUID) (*entity.AgentSession, error)
	FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.AgentSession, error)
	AddCost(ctx context.Context, id uuid.UUID, cents int, touchedAt time.Time) error
}
