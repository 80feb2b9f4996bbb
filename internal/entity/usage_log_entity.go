package entity

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog is an append-only audit record. MessageId keys billable chat turns.
type UsageLog struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	SessionId *uuid.UUID
	MessageId *uuid.UUID
	EventType string
	EventData map[string]interface{}
	CostCents int
	CreatedAt time.Time
}
