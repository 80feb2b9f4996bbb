package contract

import (
	"context"
	"time"

	"agent-catalog-be/internal/entity"

	"github.com/google/uuid"
)

type UserProfileRepository interface {
	Create(ctx context.Context, profile *entity.UserProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*entity.UserProfile, error)
	// IncrementUsage adds one to usage_count in storage, never in caller memory.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	// ResetUsage zeroes the counter of every profile whose window started at or before cutoff.
	ResetUsage(ctx context.Context, cutoff, now time.Time) (int64, error)
}
