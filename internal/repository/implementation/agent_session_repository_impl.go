package implementation

import (
	"context"
	"errors"
	"time"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/mapper"
	"agent-catalog-be/internal/model"
	"agent-catalog-be/internal/repository/contract"
	"agent-catalog-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AgentSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentMapper
}

func NewAgentSessionRepository(db *gorm.DB) contract.AgentSessionRepository {
	return &AgentSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentMapper(),
	}
}

func (r *AgentSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AgentSessionRepositoryImpl) Create(ctx context.Context, session *entity.AgentSession) error {
	m := r.mapper.AgentSessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.AgentSessionToEntity(m)
	return nil
}

// UpdateStatus writes only the lifecycle columns; cost and activity belong to AddCost.
func (r *AgentSessionRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.AgentSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AgentSessionRepositoryImpl) FindOwned(ctx context.Context, id, userId uuid.UUID) (*entity.AgentSession, error) {
	var m model.AgentSession
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.AgentSessionToEntity(&m), nil
}

func (r *AgentSessionRepositoryImpl) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.AgentSession, error) {
	var models []*model.AgentSession
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "last_activity_at", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.AgentSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.AgentSessionToEntity(m)
	}
	return entities, nil
}

// AddCost accumulates cost in SQL so concurrent turns never overwrite each other.
func (r *AgentSessionRepositoryImpl) AddCost(ctx context.Context, id uuid.UUID, cents int, touchedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.AgentSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cost_cents":       gorm.Expr("cost_cents + ?", cents),
			"last_activity_at": touchedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
