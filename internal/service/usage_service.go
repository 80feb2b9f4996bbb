package service

import (
	"context"
	"time"

	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/quota"

	"github.com/google/uuid"
)

type IUsageService interface {
	GetStatus(ctx context.Context, userId uuid.UUID) (*dto.UsageStatusResponse, error)
	// ResetExpired starts a new usage window for every profile whose window is a month old.
	ResetExpired(ctx context.Context) (int64, error)
}

type usageService struct {
	uowFactory unitofwork.RepositoryFactory
	guard      *quota.Guard
	logger     logger.ILogger
	now        func() time.Time
}

func NewUsageService(uowFactory unitofwork.RepositoryFactory, guard *quota.Guard, log logger.ILogger) IUsageService {
	return &usageService{
		uowFactory: uowFactory,
		guard:      guard,
		logger:     log,
		now:        time.Now,
	}
}

func (s *usageService) GetStatus(ctx context.Context, userId uuid.UUID) (*dto.UsageStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	profile, err := uow.UserProfileRepository().FindByID(ctx, userId)
	if err != nil || profile == nil {
		return nil, dto.ErrProfileUnavailable
	}

	decision, err := s.guard.Admit(profile.SubscriptionPlan, profile.UsageCount)
	if err != nil {
		return nil, err
	}

	return &dto.UsageStatusResponse{
		Plan:     profile.SubscriptionPlan,
		Used:     profile.UsageCount,
		Limit:    decision.Ceiling,
		CanUse:   decision.Allowed,
		ResetsAt: profile.MonthlyUsageReset.AddDate(0, 1, 0),
	}, nil
}

func (s *usageService) ResetExpired(ctx context.Context) (int64, error) {
	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	affected, err := uow.UserProfileRepository().ResetUsage(ctx, now.AddDate(0, -1, 0), now)
	if err != nil {
		s.logger.Error("USAGE", "Monthly usage reset failed", map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	if affected > 0 {
		s.logger.Info("USAGE", "Monthly usage reset", map[string]interface{}{"profiles": affected})
	}
	return affected, nil
}

// RunUsageResetWorker calls ResetExpired on every tick until ctx is done.
func RunUsageResetWorker(ctx context.Context, svc IUsageService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = svc.ResetExpired(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = svc.ResetExpired(ctx)
		}
	}
}
