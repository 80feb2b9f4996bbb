package implementation

import (
	"context"
	"errors"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/mapper"
	"agent-catalog-be/internal/model"
	"agent-catalog-be/internal/repository/contract"
	"agent-catalog-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentMapper
}

func NewUsageLogRepository(db *gorm.DB) contract.UsageLogRepository {
	return &UsageLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentMapper(),
	}
}

func (r *UsageLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Append relies on the unique index over message_id; a duplicate turn inserts nothing.
func (r *UsageLogRepositoryImpl) Append(ctx context.Context, log *entity.UsageLog) (bool, error) {
	m := r.mapper.UsageLogToModel(log)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	*log = *r.mapper.UsageLogToEntity(m)
	return true, nil
}

func (r *UsageLogRepositoryImpl) FindByMessageID(ctx context.Context, messageId uuid.UUID) (*entity.UsageLog, error) {
	var m model.UsageLog
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByMessageID{MessageID: messageId})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UsageLogToEntity(&m), nil
}

func (r *UsageLogRepositoryImpl) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.UsageLog, error) {
	var models []*model.UsageLog
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.UsageLog, len(models))
	for i, m := range models {
		entities[i] = r.mapper.UsageLogToEntity(m)
	}
	return entities, nil
}
