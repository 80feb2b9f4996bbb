package model

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"` // Same id as the identity provider's user
	Email             string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName          *string   `gorm:"type:varchar(255)"`
	AvatarURL         *string   `gorm:"type:text"`
	SubscriptionPlan  string    `gorm:"type:varchar(20);not null;default:'free'"`
	UsageCount        int       `gorm:"not null;default:0"`
	MonthlyUsageReset time.Time `gorm:"not null;index"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
