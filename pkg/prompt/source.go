package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/repository/memory"
	"agent-catalog-be/internal/repository/unitofwork"

	"github.com/redis/go-redis/v9"
)

// TemplateSource reads the active prompt template for an agent type.
// A nil template with a nil error means none is active.
type TemplateSource interface {
	ActiveTemplate(ctx context.Context, agentType string) (*entity.PromptTemplate, error)
}

// RepositorySource reads straight from storage.
type RepositorySource struct {
	factory unitofwork.RepositoryFactory
}

func NewRepositorySource(factory unitofwork.RepositoryFactory) *RepositorySource {
	return &RepositorySource{factory: factory}
}

func (s *RepositorySource) ActiveTemplate(ctx context.Context, agentType string) (*entity.PromptTemplate, error) {
	uow := s.factory.NewUnitOfWork(ctx)
	return uow.PromptTemplateRepository().FindActive(ctx, agentType)
}

// CachedSource keeps lookups in process memory, including "none active" answers.
type CachedSource struct {
	cache *memory.TemplateCache
	next  TemplateSource
}

func NewCachedSource(cache *memory.TemplateCache, next TemplateSource) *CachedSource {
	return &CachedSource{cache: cache, next: next}
}

func (s *CachedSource) ActiveTemplate(ctx context.Context, agentType string) (*entity.PromptTemplate, error) {
	if template, found := s.cache.Get(agentType); found {
		return template, nil
	}
	template, err := s.next.ActiveTemplate(ctx, agentType)
	if err != nil {
		return nil, err
	}
	s.cache.Save(agentType, template)
	return template, nil
}

const redisTemplateKeyPrefix = "prompt_template:active:"

// RedisTemplateSource shares template lookups across instances. Redis failures fall
// through to the next source.
type RedisTemplateSource struct {
	rdb    *redis.Client
	next   TemplateSource
	ttl    time.Duration
	logger logger.ILogger
}

func NewRedisTemplateSource(rdb *redis.Client, next TemplateSource, ttl time.Duration, log logger.ILogger) *RedisTemplateSource {
	return &RedisTemplateSource{rdb: rdb, next: next, ttl: ttl, logger: log}
}

func RedisTemplateKey(agentType string) string {
	return redisTemplateKeyPrefix + agentType
}

func (s *RedisTemplateSource) ActiveTemplate(ctx context.Context, agentType string) (*entity.PromptTemplate, error) {
	key := RedisTemplateKey(agentType)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var template entity.PromptTemplate
		if jsonErr := json.Unmarshal(raw, &template); jsonErr == nil {
			return &template, nil
		}
		s.logger.Warn("PROMPT", "Discarding undecodable cached template", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("PROMPT", "Redis template lookup failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	template, err := s.next.ActiveTemplate(ctx, agentType)
	if err != nil || template == nil {
		return template, err
	}

	payload, err := json.Marshal(template)
	if err == nil {
		err = s.rdb.Set(ctx, key, payload, s.ttl).Err()
	}
	if err != nil {
		s.logger.Warn("PROMPT", "Failed to cache template in redis", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return template, nil
}
