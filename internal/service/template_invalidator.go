package service

import (
	"context"
	"fmt"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/pkg/events"
	"agent-catalog-be/pkg/prompt"

	"github.com/redis/go-redis/v9"
)

// TemplateInvalidator evicts cached templates when a new one is activated.
type TemplateInvalidator struct {
	cache  *memory.TemplateCache
	rdb    *redis.Client
	logger logger.ILogger
}

func NewTemplateInvalidator(cache *memory.TemplateCache, rdb *redis.Client, log logger.ILogger) *TemplateInvalidator {
	return &TemplateInvalidator{cache: cache, rdb: rdb, logger: log}
}

// Handle has the signature of a NATS event handler.
func (i *TemplateInvalidator) Handle(ctx context.Context, event events.Event) error {
	agentType, _ := event.Payload()["agent_type"].(string)
	if agentType == "" {
		i.logger.Warn("PROMPT", "Template activation without agent type", map[string]interface{}{"event_id": event.EventID()})
		return nil
	}

	i.cache.Delete(agentType)
	if i.rdb != nil {
		if err := i.rdb.Del(ctx, prompt.RedisTemplateKey(agentType)).Err(); err != nil {
			return fmt.Errorf("evict redis template: %w", err)
		}
	}

	i.logger.Info("PROMPT", "Template cache invalidated", map[string]interface{}{"agent_type": agentType})
	return nil
}
