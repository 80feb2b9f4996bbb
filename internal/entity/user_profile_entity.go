package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	Id                uuid.UUID
	Email             string
	FullName          *string
	SubscriptionPlan  string
	UsageCount        int
	MonthlyUsageReset time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
