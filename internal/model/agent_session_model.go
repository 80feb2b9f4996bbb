package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AgentSession struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID      `gorm:"type:uuid;not null;index"` // Owner; every read filters on it
	AgentType        string         `gorm:"type:varchar(100);not null"`
	FormData         datatypes.JSON `gorm:"type:jsonb;not null"`
	GeneratedPrompt  *string        `gorm:"type:text"`
	PromptTemplateId *uuid.UUID     `gorm:"type:uuid"`
	Status           string         `gorm:"type:varchar(20);not null;default:'active'"`
	SessionMetadata  datatypes.JSON `gorm:"type:jsonb"`
	CostCents        int            `gorm:"not null;default:0"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	CompletedAt      *time.Time
	LastActivityAt   time.Time `gorm:"not null;index"`
}

func (AgentSession) TableName() string {
	return "agent_sessions"
}
