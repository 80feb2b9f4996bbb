package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Entry describes one completed, billable chat turn.
type Entry struct {
	MessageId      uuid.UUID
	UserId         uuid.UUID
	SessionId      uuid.UUID
	TotalTokens    int
	IsFirstMessage bool
}

type Result struct {
	// Applied is false when the turn had already been recorded.
	Applied   bool
	CostCents int
}

// Ledger books usage for completed turns.
type Ledger struct {
	factory           unitofwork.RepositoryFactory
	costPerTokenCents float64
	now               func() time.Time
}

func NewLedger(factory unitofwork.RepositoryFactory, costPerTokenCents float64) *Ledger {
	return &Ledger{
		factory:           factory,
		costPerTokenCents: costPerTokenCents,
		now:               time.Now,
	}
}

// Cost rounds tokens*rate to whole cents. It is never negative.
func (l *Ledger) Cost(totalTokens int) int {
	if totalTokens <= 0 || l.costPerTokenCents <= 0 {
		return 0
	}
	return int(math.Round(float64(totalTokens) * l.costPerTokenCents))
}

// Record appends the audit event, increments the usage counter, and adds the cost to
// the session in one transaction. The audit event is keyed by MessageId, so recording
// the same turn again changes nothing.
func (l *Ledger) Record(ctx context.Context, entry Entry) (Result, error) {
	cost := l.Cost(entry.TotalTokens)
	messageId := entry.MessageId
	sessionId := entry.SessionId

	uow := l.factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return Result{}, fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer uow.Rollback()

	inserted, err := uow.UsageLogRepository().Append(ctx, &entity.UsageLog{
		Id:        uuid.New(),
		UserId:    entry.UserId,
		SessionId: &sessionId,
		MessageId: &messageId,
		EventType: constant.UsageEventChatTurn,
		EventData: map[string]interface{}{
			"tokens_used":      entry.TotalTokens,
			"is_first_message": entry.IsFirstMessage,
		},
		CostCents: cost,
		CreatedAt: l.now(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("append usage log: %w", err)
	}
	if !inserted {
		return Result{Applied: false, CostCents: cost}, nil
	}

	if err := uow.UserProfileRepository().IncrementUsage(ctx, entry.UserId); err != nil {
		return Result{}, fmt.Errorf("increment usage: %w", err)
	}
	if err := uow.AgentSessionRepository().AddCost(ctx, entry.SessionId, cost, l.now()); err != nil {
		return Result{}, fmt.Errorf("add session cost: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit ledger transaction: %w", err)
	}
	return Result{Applied: true, CostCents: cost}, nil
}
