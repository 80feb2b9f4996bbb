package unitofwork

import (
	"context"

	"agent-catalog-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AgentSessionRepository() contract.AgentSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	UserProfileRepository() contract.UserProfileRepository
	UsageLogRepository() contract.UsageLogRepository
	PromptTemplateRepository() contract.PromptTemplateRepository
}
