package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/unitofwork"
	"agent-catalog-be/pkg/conversation"
	"agent-catalog-be/pkg/ledger"
	"agent-catalog-be/pkg/llm"
	"agent-catalog-be/pkg/prompt"
	"agent-catalog-be/pkg/quota"
	"agent-catalog-be/pkg/stream"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type RelayState string

const (
	StateAuthenticating     RelayState = "authenticating"
	StateAuthorizing        RelayState = "authorizing"
	StatePersistingUserTurn RelayState = "persisting_user_turn"
	StateStreaming          RelayState = "streaming"
	StateFinalizing         RelayState = "finalizing"
	StateClosed             RelayState = "closed"
	StateErrored            RelayState = "errored"
)

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Turn is an admitted chat turn whose user message is already stored.
type Turn struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	SessionId      uuid.UUID
	Plan           string
	IsFirstMessage bool
	UserMessage    *entity.ChatMessage
	History        []llm.Message
}

// ITurnReconciler takes finished turns whose bookkeeping did not fully commit.
type ITurnReconciler interface {
	Enqueue(ctx context.Context, msg dto.ReconcileTurnMessage) error
}

// IChatStreamService relays one chat turn. Begin runs every check and write that
// must happen before the response starts; Stream forwards the model output.
type IChatStreamService interface {
	Begin(ctx context.Context, userId uuid.UUID, request *dto.ChatStreamRequest) (*Turn, error)
	Stream(ctx context.Context, turn *Turn, sink stream.EventSink) Outcome
}

type chatStreamService struct {
	uowFactory    unitofwork.RepositoryFactory
	composer      *prompt.Composer
	guard         *quota.Guard
	provider      llm.LLMProvider
	conversation  *conversation.Store
	ledger        *ledger.Ledger
	reconciler    ITurnReconciler
	publisher     IChatEventPublisher
	logger        logger.ILogger
	historyWindow int
	tracer        trace.Tracer
	now           func() time.Time
}

func NewChatStreamService(
	uowFactory unitofwork.RepositoryFactory,
	composer *prompt.Composer,
	guard *quota.Guard,
	provider llm.LLMProvider,
	conversationStore *conversation.Store,
	usageLedger *ledger.Ledger,
	reconciler ITurnReconciler,
	publisher IChatEventPublisher,
	log logger.ILogger,
) IChatStreamService {
	return &chatStreamService{
		uowFactory:    uowFactory,
		composer:      composer,
		guard:         guard,
		provider:      provider,
		conversation:  conversationStore,
		ledger:        usageLedger,
		reconciler:    reconciler,
		publisher:     publisher,
		logger:        log,
		historyWindow: conversation.DefaultHistoryWindow,
		tracer:        otel.Tracer("agent-catalog-be/relay"),
		now:           time.Now,
	}
}

func (s *chatStreamService) transition(turnId uuid.UUID, state RelayState, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["turn_id"] = turnId.String()
	details["state"] = string(state)
	s.logger.Debug("CHAT_RELAY", "State transition", details)
}

func (s *chatStreamService) Begin(ctx context.Context, userId uuid.UUID, request *dto.ChatStreamRequest) (*Turn, error) {
	turnId := uuid.New()
	ctx, span := s.tracer.Start(ctx, "chat.relay.begin", trace.WithAttributes(
		attribute.String("turn.id", turnId.String()),
		attribute.String("session.id", request.SessionId.String()),
	))
	defer span.End()

	turn, err := s.begin(ctx, turnId, userId, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.transition(turnId, StateErrored, map[string]interface{}{"error": err.Error()})
	}
	return turn, err
}

func (s *chatStreamService) begin(ctx context.Context, turnId, userId uuid.UUID, request *dto.ChatStreamRequest) (*Turn, error) {
	s.transition(turnId, StateAuthenticating, nil)
	if userId == uuid.Nil {
		return nil, dto.ErrUnauthenticated
	}

	s.transition(turnId, StateAuthorizing, map[string]interface{}{"user_id": userId.String(), "session_id": request.SessionId.String()})
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.AgentSessionRepository().FindOwned(ctx, request.SessionId, userId)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, dto.ErrSessionNotFound
	}

	profile, err := uow.UserProfileRepository().FindByID(ctx, userId)
	if err != nil || profile == nil {
		details := map[string]interface{}{"user_id": userId.String()}
		if err != nil {
			details["error"] = err.Error()
		}
		s.logger.Error("CHAT_RELAY", "Failed to load user profile", details)
		return nil, dto.ErrProfileUnavailable
	}

	decision, err := s.guard.Admit(profile.SubscriptionPlan, profile.UsageCount)
	if err != nil {
		s.logger.Error("CHAT_RELAY", "Quota check failed", map[string]interface{}{"user_id": userId.String(), "error": err.Error()})
		return nil, err
	}
	if !decision.Allowed {
		s.publisher.PublishUsageLimitReached(ctx, userId, profile.SubscriptionPlan, decision.Ceiling, decision.Used)
		return nil, &dto.LimitExceededError{
			Plan:       profile.SubscriptionPlan,
			Limit:      decision.Ceiling,
			Used:       decision.Used,
			ResetAfter: profile.MonthlyUsageReset.AddDate(0, 1, 0),
		}
	}

	s.transition(turnId, StatePersistingUserTurn, nil)
	userMessage, err := s.conversation.AppendUserTurn(ctx, session.Id, request.Message)
	if err != nil {
		s.logger.Error("CHAT_RELAY", "Failed to persist user turn", map[string]interface{}{"session_id": session.Id.String(), "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", dto.ErrPersistence, err)
	}

	var form *entity.DecisionFormData
	if request.IsFirstMessage {
		form = session.FormData
	}
	systemPrompt := s.composer.Compose(ctx, session.AgentType, form)

	transcript, err := s.conversation.Transcript(ctx, session.Id)
	if err != nil {
		s.logger.Warn("CHAT_RELAY", "Transcript unavailable, sending the new message alone", map[string]interface{}{"session_id": session.Id.String(), "error": err.Error()})
		transcript = []*entity.ChatMessage{userMessage}
	}

	return &Turn{
		Id:             turnId,
		UserId:         userId,
		SessionId:      session.Id,
		Plan:           profile.SubscriptionPlan,
		IsFirstMessage: request.IsFirstMessage,
		UserMessage:    userMessage,
		History:        conversation.BuildHistory(systemPrompt, transcript, s.historyWindow),
	}, nil
}

// Stream forwards fragments in emission order. Finalizing runs only after a natural
// end of the model stream and is not interrupted by ctx.
func (s *chatStreamService) Stream(ctx context.Context, turn *Turn, sink stream.EventSink) Outcome {
	ctx, span := s.tracer.Start(ctx, "chat.relay.stream", trace.WithAttributes(
		attribute.String("turn.id", turn.Id.String()),
		attribute.String("session.id", turn.SessionId.String()),
	))
	defer span.End()

	s.transition(turn.Id, StateStreaming, nil)
	started := s.now()

	var content strings.Builder
	var usage *llm.Usage
	fragments := 0

	for chunk, err := range s.provider.ChatStream(ctx, turn.History) {
		if err != nil {
			if ctx.Err() != nil {
				return s.cancelled(turn, span, fragments)
			}
			s.logger.Error("CHAT_RELAY", "Model stream failed", map[string]interface{}{
				"turn_id":    turn.Id.String(),
				"session_id": turn.SessionId.String(),
				"fragments":  fragments,
				"timeout":    errors.Is(err, llm.ErrReadTimeout),
				"error":      err.Error(),
			})
			span.RecordError(err)
			span.SetStatus(codes.Error, "model stream failed")
			_ = sink.Fail(constant.MessageStreamFailed)
			s.transition(turn.Id, StateErrored, map[string]interface{}{"fragments": fragments})
			return OutcomeFailed
		}

		if chunk.Usage != nil {
			usage = chunk.Usage
			continue
		}

		if err := sink.Token(chunk.Text); err != nil {
			return s.cancelled(turn, span, fragments)
		}
		content.WriteString(chunk.Text)
		fragments++
	}

	if ctx.Err() != nil {
		return s.cancelled(turn, span, fragments)
	}
	if usage == nil {
		usage = &llm.Usage{}
	}
	span.SetAttributes(attribute.Int("llm.total_tokens", usage.TotalTokens), attribute.Int("llm.fragments", fragments))

	s.finalize(context.WithoutCancel(ctx), turn, content.String(), *usage, s.now().Sub(started))

	if err := sink.Complete(*usage); err != nil {
		s.logger.Warn("CHAT_RELAY", "Client left before the completion marker", map[string]interface{}{"turn_id": turn.Id.String(), "error": err.Error()})
	}
	s.transition(turn.Id, StateClosed, map[string]interface{}{"fragments": fragments, "total_tokens": usage.TotalTokens})
	return OutcomeCompleted
}

func (s *chatStreamService) cancelled(turn *Turn, span trace.Span, fragments int) Outcome {
	span.SetAttributes(attribute.Bool("chat.cancelled", true))
	s.logger.Info("CHAT_RELAY", "Client disconnected, turn discarded", map[string]interface{}{
		"turn_id":    turn.Id.String(),
		"session_id": turn.SessionId.String(),
		"fragments":  fragments,
	})
	s.transition(turn.Id, StateClosed, map[string]interface{}{"cancelled": true})
	return OutcomeCancelled
}

// finalize stores the assistant turn and books usage. Failures are logged and handed
// to the reconciler; delivered text is never retracted.
func (s *chatStreamService) finalize(ctx context.Context, turn *Turn, content string, usage llm.Usage, elapsed time.Duration) {
	s.transition(turn.Id, StateFinalizing, nil)

	messageId := uuid.New()
	completedAt := s.now()
	pending := dto.ReconcileTurnMessage{
		MessageId:      messageId,
		SessionId:      turn.SessionId,
		UserId:         turn.UserId,
		Content:        content,
		TotalTokens:    usage.TotalTokens,
		ResponseTimeMs: int(elapsed.Milliseconds()),
		IsFirstMessage: turn.IsFirstMessage,
		CompletedAt:    completedAt,
		MessageSaved:   true,
	}
	needsReconcile := false

	if _, err := s.conversation.AppendAssistantTurn(ctx, conversation.AssistantTurn{
		Id:             messageId,
		SessionId:      turn.SessionId,
		Content:        content,
		TokensUsed:     usage.TotalTokens,
		ResponseTimeMs: pending.ResponseTimeMs,
		CreatedAt:      completedAt,
	}); err != nil {
		s.logger.Error("CHAT_RELAY", "Failed to persist assistant turn", map[string]interface{}{
			"message_id": messageId.String(),
			"session_id": turn.SessionId.String(),
			"error":      err.Error(),
		})
		pending.MessageSaved = false
		needsReconcile = true
	}

	result, err := s.ledger.Record(ctx, ledger.Entry{
		MessageId:      messageId,
		UserId:         turn.UserId,
		SessionId:      turn.SessionId,
		TotalTokens:    usage.TotalTokens,
		IsFirstMessage: turn.IsFirstMessage,
	})
	if err != nil {
		s.logger.Error("CHAT_RELAY", "Failed to record usage", map[string]interface{}{
			"message_id": messageId.String(),
			"user_id":    turn.UserId.String(),
			"error":      err.Error(),
		})
		needsReconcile = true
	}

	if needsReconcile {
		if err := s.reconciler.Enqueue(ctx, pending); err != nil {
			s.logger.Error("CHAT_RELAY", "Failed to enqueue turn for reconciliation", map[string]interface{}{
				"message_id": messageId.String(),
				"error":      err.Error(),
			})
		}
		return
	}

	if result.Applied {
		s.publisher.PublishTurnCompleted(ctx, TurnCompleted{
			UserId:         turn.UserId,
			SessionId:      turn.SessionId,
			MessageId:      messageId,
			TotalTokens:    usage.TotalTokens,
			CostCents:      result.CostCents,
			IsFirstMessage: turn.IsFirstMessage,
		})
	}
}
