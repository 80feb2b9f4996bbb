package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/contract"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errStorageDown = errors.New("storage unavailable")

type fixture struct {
	factory   unitofwork.RepositoryFactory
	userId    uuid.UUID
	sessionId uuid.UUID
}

func newFixture(t *testing.T, plan string, usage int) fixture {
	t.Helper()
	ctx := context.Background()
	factory := memory.NewRepositoryFactory(memory.NewStore())
	uow := factory.NewUnitOfWork(ctx)

	profile := &entity.UserProfile{
		Id:                uuid.New(),
		Email:             "lucia@example.com",
		SubscriptionPlan:  plan,
		UsageCount:        usage,
		MonthlyUsageReset: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, uow.UserProfileRepository().Create(ctx, profile))

	session := &entity.AgentSession{
		Id:        uuid.New(),
		UserId:    profile.Id,
		AgentType: constant.AgentTypeDecisionArchitect,
		FormData: &entity.DecisionFormData{
			DecisionContext: "Evalúo abrir una segunda sucursal de mi cafetería en Medellín durante el próximo trimestre.",
			Timeline:        constant.TimelineUrgent,
			Alternatives:    []string{"Abrir ahora", "Esperar un año"},
			Criteria:        []string{"costo", "tiempo", "riesgo"},
			MissingInfo:     "No tengo datos de tráfico peatonal de la zona.",
		},
		Status:         constant.SessionStatusActive,
		LastActivityAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, uow.AgentSessionRepository().Create(ctx, session))

	return fixture{factory: factory, userId: profile.Id, sessionId: session.Id}
}

func (f fixture) profile(t *testing.T) *entity.UserProfile {
	t.Helper()
	p, err := f.factory.NewUnitOfWork(context.Background()).UserProfileRepository().FindByID(context.Background(), f.userId)
	require.NoError(t, err)
	return p
}

func (f fixture) session(t *testing.T) *entity.AgentSession {
	t.Helper()
	s, err := f.factory.NewUnitOfWork(context.Background()).AgentSessionRepository().FindOwned(context.Background(), f.sessionId, f.userId)
	require.NoError(t, err)
	return s
}

func (f fixture) messages(t *testing.T) []*entity.ChatMessage {
	t.Helper()
	m, err := f.factory.NewUnitOfWork(context.Background()).ChatMessageRepository().FindBySession(context.Background(), f.sessionId)
	require.NoError(t, err)
	return m
}

func (f fixture) usageLogs(t *testing.T) []*entity.UsageLog {
	t.Helper()
	l, err := f.factory.NewUnitOfWork(context.Background()).UsageLogRepository().FindAllByUser(context.Background(), f.userId)
	require.NoError(t, err)
	return l
}

func rolesOf(messages []*entity.ChatMessage) []string {
	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.Role)
	}
	return roles
}

// faultyFactory fails chat message inserts for the given role while failures > 0.
type faultyFactory struct {
	unitofwork.RepositoryFactory
	mu       sync.Mutex
	role     string
	failures int
}

func (f *faultyFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return faultyUnitOfWork{UnitOfWork: f.RepositoryFactory.NewUnitOfWork(ctx), factory: f}
}

func (f *faultyFactory) take(role string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role != f.role || f.failures == 0 {
		return false
	}
	if f.failures > 0 {
		f.failures--
	}
	return true
}

type faultyUnitOfWork struct {
	unitofwork.UnitOfWork
	factory *faultyFactory
}

func (u faultyUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return faultyMessages{ChatMessageRepository: u.UnitOfWork.ChatMessageRepository(), factory: u.factory}
}

type faultyMessages struct {
	contract.ChatMessageRepository
	factory *faultyFactory
}

func (r faultyMessages) Create(ctx context.Context, message *entity.ChatMessage) (bool, error) {
	if r.factory.take(message.Role) {
		return false, errStorageDown
	}
	return r.ChatMessageRepository.Create(ctx, message)
}

type limitEvent struct {
	userId uuid.UUID
	plan   string
	limit  int
	used   int
}

type recordingPublisher struct {
	mu        sync.Mutex
	completed []TurnCompleted
	limits    []limitEvent
	templates []string
}

func (p *recordingPublisher) PublishTurnCompleted(ctx context.Context, turn TurnCompleted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, turn)
}

func (p *recordingPublisher) PublishUsageLimitReached(ctx context.Context, userId uuid.UUID, plan string, limit, used int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits = append(p.limits, limitEvent{userId: userId, plan: plan, limit: limit, used: used})
}

func (p *recordingPublisher) PublishTemplateActivated(ctx context.Context, agentType string, templateId uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates = append(p.templates, agentType)
}

type recordingReconciler struct {
	mu      sync.Mutex
	pending []dto.ReconcileTurnMessage
}

func (r *recordingReconciler) Enqueue(ctx context.Context, msg dto.ReconcileTurnMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, msg)
	return nil
}

// captureLogger keeps Error entries for assertions.
type captureLogger struct {
	*logger.ZapLogger
	mu     sync.Mutex
	errors []string
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{ZapLogger: logger.NewNopLogger()}
}

func (l *captureLogger) Error(module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *captureLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}
