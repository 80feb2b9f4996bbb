package service

import (
	"context"
	"fmt"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/prompt"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	Get(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionDetailResponse, error)
	UpdateStatus(ctx context.Context, userId, sessionId uuid.UUID, request *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
}

// allowedTransitions lists every status change a user may request. Statuses only move
// forward, except that a completed session can be reopened.
var allowedTransitions = map[string][]string{
	constant.SessionStatusActive:    {constant.SessionStatusCompleted, constant.SessionStatusAbandoned, constant.SessionStatusError},
	constant.SessionStatusCompleted: {constant.SessionStatusActive},
}

func canTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
		logger:     log,
		now:        time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	agentType := request.AgentType
	if agentType == "" {
		agentType = constant.AgentTypeDecisionArchitect
	}

	form := formToEntity(&request.FormData)
	generated := prompt.RenderDecisionPrompt(form)
	now := s.now()

	session := &entity.AgentSession{
		Id:              uuid.New(),
		UserId:          userId,
		AgentType:       agentType,
		FormData:        form,
		GeneratedPrompt: &generated,
		Status:          constant.SessionStatusActive,
		CostCents:       0,
		CreatedAt:       now,
		LastActivityAt:  now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AgentSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", dto.ErrPersistence, err)
	}

	s.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId.String(),
		"agent_type": agentType,
	})
	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (s *sessionService) List(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.AgentSessionRepository().FindAllByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, sessionToResponse(session, false))
	}
	return res, nil
}

func (s *sessionService) Get(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SessionDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.AgentSessionRepository().FindOwned(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, dto.ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}

	res := &dto.SessionDetailResponse{
		Session:  *sessionToResponse(session, true),
		Messages: make([]dto.ChatMessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		res.Messages = append(res.Messages, dto.ChatMessageResponse{
			Id:             msg.Id,
			Role:           msg.Role,
			Content:        msg.Content,
			TokensUsed:     msg.TokensUsed,
			ResponseTimeMs: msg.ResponseTimeMs,
			Sequence:       msg.Sequence,
			CreatedAt:      msg.CreatedAt,
		})
	}
	return res, nil
}

func (s *sessionService) UpdateStatus(ctx context.Context, userId, sessionId uuid.UUID, request *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := uow.AgentSessionRepository().FindOwned(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, dto.ErrSessionNotFound
	}

	if session.Status == request.Status {
		return sessionToResponse(session, false), nil
	}
	if !canTransition(session.Status, request.Status) {
		return nil, fmt.Errorf("%w: %s to %s", dto.ErrInvalidStatusTransition, session.Status, request.Status)
	}

	var completedAt *time.Time
	if request.Status == constant.SessionStatusCompleted {
		now := s.now()
		completedAt = &now
	}

	if err := uow.AgentSessionRepository().UpdateStatus(ctx, session.Id, request.Status, completedAt); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("SESSION", "Session status changed", map[string]interface{}{
		"session_id": session.Id.String(),
		"from":       session.Status,
		"to":         request.Status,
	})

	session.Status = request.Status
	session.CompletedAt = completedAt
	return sessionToResponse(session, false), nil
}

func formToEntity(form *dto.DecisionFormRequest) *entity.DecisionFormData {
	return &entity.DecisionFormData{
		DecisionContext: form.DecisionContext,
		Timeline:        form.Timeline,
		Alternatives:    append([]string(nil), form.Alternatives...),
		Criteria:        append([]string(nil), form.Criteria...),
		MissingInfo:     form.MissingInfo,
		PersonalContext: form.PersonalContext,
	}
}

func sessionToResponse(session *entity.AgentSession, withDetail bool) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:             session.Id,
		AgentType:      session.AgentType,
		Status:         session.Status,
		CostCents:      session.CostCents,
		CreatedAt:      session.CreatedAt,
		CompletedAt:    session.CompletedAt,
		LastActivityAt: session.LastActivityAt,
	}
	if withDetail {
		res.GeneratedPrompt = session.GeneratedPrompt
		if session.FormData != nil {
			res.FormData = &dto.DecisionFormRequest{
				DecisionContext: session.FormData.DecisionContext,
				Timeline:        session.FormData.Timeline,
				Alternatives:    session.FormData.Alternatives,
				Criteria:        session.FormData.Criteria,
				MissingInfo:     session.FormData.MissingInfo,
				PersonalContext: session.FormData.PersonalContext,
			}
		}
	}
	return res
}
