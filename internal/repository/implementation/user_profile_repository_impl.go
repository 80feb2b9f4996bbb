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

type UserProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentMapper
}

func NewUserProfileRepository(db *gorm.DB) contract.UserProfileRepository {
	return &UserProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentMapper(),
	}
}

func (r *UserProfileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UserProfileRepositoryImpl) Create(ctx context.Context, profile *entity.UserProfile) error {
	m := r.mapper.UserProfileToModel(profile)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*profile = *r.mapper.UserProfileToEntity(m)
	return nil
}

func (r *UserProfileRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.UserProfile, error) {
	var m model.UserProfile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserProfileToEntity(&m), nil
}

func (r *UserProfileRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *UserProfileRepositoryImpl) FindByEmail(ctx context.Context, email string) (*entity.UserProfile, error) {
	return r.findOne(ctx, specification.ByEmail{Email: email})
}

func (r *UserProfileRepositoryImpl) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserProfileRepositoryImpl) ResetUsage(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.UserProfile{}),
		specification.UsageWindowStartedBefore{Cutoff: cutoff},
	)
	res := query.Updates(map[string]interface{}{
		"usage_count":         0,
		"monthly_usage_reset": now,
	})
	return res.RowsAffected, res.Error
}
