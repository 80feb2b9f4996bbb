package entity

import (
	"time"

	"github.com/google/uuid"
)

type PromptTemplate struct {
	Id               uuid.UUID
	AgentType        string
	Version          string
	TemplateContent  string
	Variables        map[string]interface{}
	IsActive         bool
	PerformanceScore *float64
	CreatedAt        time.Time
}
