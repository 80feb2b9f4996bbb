package implementation

import (
	"context"
	"errors"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/mapper"
	"agent-catalog-be/internal/model"
	"agent-catalog-be/internal/repository/contract"
	"agent-catalog-be/internal/repository/specification"

	"gorm.io/gorm"
)

type PromptTemplateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentMapper
}

func NewPromptTemplateRepository(db *gorm.DB) contract.PromptTemplateRepository {
	return &PromptTemplateRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentMapper(),
	}
}

func (r *PromptTemplateRepositoryImpl) Create(ctx context.Context, template *entity.PromptTemplate) error {
	m := r.mapper.PromptTemplateToModel(template)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*template = *r.mapper.PromptTemplateToEntity(m)
	return nil
}

func (r *PromptTemplateRepositoryImpl) FindActive(ctx context.Context, agentType string) (*entity.PromptTemplate, error) {
	var m model.PromptTemplate
	query := specification.ActiveTemplate{AgentType: agentType}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PromptTemplateToEntity(&m), nil
}
