package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatStreamRequest struct {
	SessionId      uuid.UUID `json:"sessionId" validate:"required"`
	Message        string    `json:"message" validate:"required,notblank,max=4000"`
	IsFirstMessage bool      `json:"isFirstMessage"`
}

// --- Stream Events ---

type StreamTokenEvent struct {
	Token string `json:"token"`
}

type StreamUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type StreamCompleteEvent struct {
	Complete bool        `json:"complete"`
	Usage    StreamUsage `json:"usage"`
}

type StreamErrorEvent struct {
	Error string `json:"error"`
}

// ReconcileTurnMessage carries a finished turn whose bookkeeping did not fully commit.
type ReconcileTurnMessage struct {
	MessageId      uuid.UUID `json:"message_id"`
	SessionId      uuid.UUID `json:"session_id"`
	UserId         uuid.UUID `json:"user_id"`
	Content        string    `json:"content"`
	TotalTokens    int       `json:"total_tokens"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IsFirstMessage bool      `json:"is_first_message"`
	CompletedAt    time.Time `json:"completed_at"`
	MessageSaved   bool      `json:"message_saved"`
	Attempt        int       `json:"attempt"`
}
