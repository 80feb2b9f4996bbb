package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_order,priority:1"`
	Role           string    `gorm:"type:varchar(20);not null"`
	Content        string    `gorm:"type:text;not null"`
	TokensUsed     *int
	ResponseTimeMs *int
	Sequence       int64     `gorm:"autoIncrement;not null;index:idx_chat_messages_session_order,priority:3"`
	CreatedAt      time.Time `gorm:"not null;index:idx_chat_messages_session_order,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
