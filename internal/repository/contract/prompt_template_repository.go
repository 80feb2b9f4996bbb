package contract

import (
	"context"

	"agent-catalog-be/internal/entity"
)

type PromptTemplateRepository interface {
	Create(ctx context.Context, template *entity.PromptTemplate) error
	// FindActive returns the newest active template for the agent type, or nil when none exists.
	FindActive(ctx context.Context, agentType string) (*entity.PromptTemplate, error)
}
