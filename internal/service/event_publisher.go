package service

import (
	"context"
	"errors"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/pkg/events"

	"github.com/google/uuid"
)

// EventBus is satisfied by the NATS publisher.
type EventBus interface {
	Publish(ctx context.Context, event events.Event) error
}

// FanOut publishes to every bus in order and joins their errors. Nil buses are skipped.
func FanOut(buses ...EventBus) EventBus {
	var live fanOut
	for _, b := range buses {
		if b != nil {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return live
}

type fanOut []EventBus

func (f fanOut) Publish(ctx context.Context, event events.Event) error {
	var errs []error
	for _, b := range f {
		if err := b.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type TurnCompleted struct {
	UserId         uuid.UUID
	SessionId      uuid.UUID
	MessageId      uuid.UUID
	TotalTokens    int
	CostCents      int
	IsFirstMessage bool
}

// IChatEventPublisher emits chat domain events. Publishing is best effort.
type IChatEventPublisher interface {
	PublishTurnCompleted(ctx context.Context, turn TurnCompleted)
	PublishUsageLimitReached(ctx context.Context, userId uuid.UUID, plan string, limit, used int)
	PublishTemplateActivated(ctx context.Context, agentType string, templateId uuid.UUID)
}

type chatEventPublisher struct {
	bus    EventBus
	logger logger.ILogger
}

// NewChatEventPublisher returns a publisher that drops every event when bus is nil.
func NewChatEventPublisher(bus EventBus, log logger.ILogger) IChatEventPublisher {
	return &chatEventPublisher{bus: bus, logger: log}
}

func (p *chatEventPublisher) PublishTurnCompleted(ctx context.Context, turn TurnCompleted) {
	evt := events.New(constant.EventChatTurnCompleted, map[string]interface{}{
		"user_id":          turn.UserId.String(),
		"session_id":       turn.SessionId.String(),
		"message_id":       turn.MessageId.String(),
		"total_tokens":     turn.TotalTokens,
		"cost_cents":       turn.CostCents,
		"is_first_message": turn.IsFirstMessage,
		"entity_type":      "chat_message",
		"entity_id":        turn.MessageId.String(),
	})
	// One event per finalized message, even if finalization is replayed.
	evt.Id = turn.MessageId.String()
	p.publish(ctx, evt)
}

func (p *chatEventPublisher) PublishUsageLimitReached(ctx context.Context, userId uuid.UUID, plan string, limit, used int) {
	p.publish(ctx, events.New(constant.EventUsageLimitReached, map[string]interface{}{
		"user_id":     userId.String(),
		"plan":        plan,
		"limit":       limit,
		"used":        used,
		"entity_type": "user",
		"entity_id":   userId.String(),
	}))
}

func (p *chatEventPublisher) PublishTemplateActivated(ctx context.Context, agentType string, templateId uuid.UUID) {
	p.publish(ctx, events.New(constant.EventPromptTemplateActivated, map[string]interface{}{
		"agent_type":  agentType,
		"template_id": templateId.String(),
		"entity_type": "prompt_template",
		"entity_id":   templateId.String(),
	}))
}

func (p *chatEventPublisher) publish(ctx context.Context, evt events.BaseEvent) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+evt.Type+" event", map[string]interface{}{"error": err.Error()})
	}
}
