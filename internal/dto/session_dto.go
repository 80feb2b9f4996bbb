package dto

import (
	"time"

	"github.com/google/uuid"
)

// DecisionFormRequest is the intake form for the decision architect persona.
type DecisionFormRequest struct {
	DecisionContext string   `json:"contextoDecision" validate:"required,min=50,max=1000"`
	Timeline        string   `json:"timeline" validate:"required,oneof=urgente 2-4-semanas 1-2-meses flexible"`
	Alternatives    []string `json:"alternativas" validate:"required,min=2,max=6,dive,notblank"`
	Criteria        []string `json:"criterios" validate:"required,min=3,max=8,dive,notblank"`
	MissingInfo     string   `json:"informacionFaltante" validate:"required,min=20,max=500"`
	PersonalContext string   `json:"contextoPersonal,omitempty" validate:"omitempty,max=300"`
}

type CreateSessionRequest struct {
	AgentType string              `json:"agentType" validate:"omitempty,oneof=arquitecto-decisiones"`
	FormData  DecisionFormRequest `json:"formData" validate:"required"`
}

type UpdateSessionRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed abandoned error"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type SessionResponse struct {
	Id              uuid.UUID            `json:"id"`
	AgentType       string               `json:"agent_type"`
	Status          string               `json:"status"`
	FormData        *DecisionFormRequest `json:"form_data,omitempty"`
	GeneratedPrompt *string              `json:"generated_prompt,omitempty"`
	CostCents       int                  `json:"cost_cents"`
	CreatedAt       time.Time            `json:"created_at"`
	CompletedAt     *time.Time           `json:"completed_at"`
	LastActivityAt  time.Time            `json:"last_activity_at"`
}

type ChatMessageResponse struct {
	Id             uuid.UUID `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	TokensUsed     *int      `json:"tokens_used,omitempty"`
	ResponseTimeMs *int      `json:"response_time_ms,omitempty"`
	Sequence       int64     `json:"sequence"`
	CreatedAt      time.Time `json:"created_at"`
}

type SessionDetailResponse struct {
	Session  SessionResponse       `json:"session"`
	Messages []ChatMessageResponse `json:"messages"`
}
