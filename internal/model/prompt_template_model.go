package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PromptTemplate struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AgentType        string         `gorm:"type:varchar(100);not null;index"`
	Version          string         `gorm:"type:varchar(50);not null"`
	TemplateContent  string         `gorm:"type:text;not null"`
	Variables        datatypes.JSON `gorm:"type:jsonb"`
	IsActive         bool           `gorm:"default:false;index"`
	PerformanceScore *float64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
