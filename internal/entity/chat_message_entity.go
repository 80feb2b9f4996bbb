package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id             uuid.UUID
	SessionId      uuid.UUID
	Role           string
	Content        string
	TokensUsed     *int
	ResponseTimeMs *int
	Sequence       int64
	CreatedAt      time.Time
}
