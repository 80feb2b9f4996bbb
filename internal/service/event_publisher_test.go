package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBus struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (b *memoryBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return b.err
}

func TestFanOut(t *testing.T) {
	t.Run("no live buses", func(t *testing.T) {
		assert.Nil(t, FanOut(nil, nil))
	})

	t.Run("publishes to every bus and joins errors", func(t *testing.T) {
		errNats := errors.New("nats down")
		first := &memoryBus{err: errNats}
		second := &memoryBus{}

		bus := FanOut(first, nil, second)
		err := bus.Publish(context.Background(), events.New(constant.EventChatTurnCompleted, nil))

		assert.ErrorIs(t, err, errNats)
		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
	})
}

func TestChatEventPublisher(t *testing.T) {
	bus := &memoryBus{}
	pub := NewChatEventPublisher(bus, logger.NewNopLogger())
	messageId := uuid.New()

	pub.PublishTurnCompleted(context.Background(), TurnCompleted{
		UserId:      uuid.New(),
		SessionId:   uuid.New(),
		MessageId:   messageId,
		TotalTokens: 12,
		CostCents:   1,
	})

	require.Len(t, bus.events, 1)
	evt := bus.events[0]
	assert.Equal(t, constant.EventChatTurnCompleted, evt.EventType())
	assert.Equal(t, messageId.String(), evt.EventID())
	assert.Equal(t, 12, evt.Payload()["total_tokens"])
}

func TestChatEventPublisherWithoutBus(t *testing.T) {
	log := newCaptureLogger()
	pub := NewChatEventPublisher(nil, log)

	pub.PublishUsageLimitReached(context.Background(), uuid.New(), constant.SubscriptionPlanFree, 100, 100)

	assert.Empty(t, log.errors)
}

func TestTemplateInvalidatorEvictsCachedTemplate(t *testing.T) {
	cache := memory.NewTemplateCache(time.Minute)
	cache.Save(constant.AgentTypeDecisionArchitect, &entity.PromptTemplate{Id: uuid.New()})
	inv := NewTemplateInvalidator(cache, nil, logger.NewNopLogger())

	err := inv.Handle(context.Background(), events.New(constant.EventPromptTemplateActivated, map[string]interface{}{
		"agent_type": constant.AgentTypeDecisionArchitect,
	}))

	require.NoError(t, err)
	_, found := cache.Get(constant.AgentTypeDecisionArchitect)
	assert.False(t, found)
}

func TestTemplateInvalidatorIgnoresEventWithoutAgentType(t *testing.T) {
	cache := memory.NewTemplateCache(time.Minute)
	cache.Save(constant.AgentTypeDecisionArchitect, nil)
	inv := NewTemplateInvalidator(cache, nil, logger.NewNopLogger())

	err := inv.Handle(context.Background(), events.New(constant.EventPromptTemplateActivated, map[string]interface{}{}))

	require.NoError(t, err)
	_, found := cache.Get(constant.AgentTypeDecisionArchitect)
	assert.True(t, found)
}
