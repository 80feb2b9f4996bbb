package memory

import (
	"time"

	"agent-catalog-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// TemplateCache holds active prompt templates per agent type in process memory.
// A cached nil means "no active template" and is honored until it expires.
type TemplateCache struct {
	cache *cache.Cache
}

func NewTemplateCache(ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *TemplateCache) Save(agentType string, template *entity.PromptTemplate) {
	c.cache.Set(agentType, template, cache.DefaultExpiration)
}

func (c *TemplateCache) Get(agentType string) (*entity.PromptTemplate, bool) {
	if x, found := c.cache.Get(agentType); found {
		t, _ := x.(*entity.PromptTemplate)
		return t, true
	}
	return nil, false
}

func (c *TemplateCache) Delete(agentType string) {
	c.cache.Delete(agentType)
}
