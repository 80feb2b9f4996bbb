package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UsageLog struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	SessionId *uuid.UUID     `gorm:"type:uuid;index"`
	MessageId *uuid.UUID     `gorm:"type:uuid;uniqueIndex"` // Idempotency key for billed turns
	EventType string         `gorm:"type:varchar(50);not null"`
	EventData datatypes.JSON `gorm:"type:jsonb"`
	CostCents int            `gorm:"not null;default:0"`
	CreatedAt time.Time      `gorm:"default:now();not null;index"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}
