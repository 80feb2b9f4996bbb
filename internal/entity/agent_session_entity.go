package entity

import (
	"time"

	"github.com/google/uuid"
)

type AgentSession struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	AgentType        string
	FormData         *DecisionFormData
	GeneratedPrompt  *string
	PromptTemplateId *uuid.UUID
	Status           string
	CostCents        int
	CreatedAt        time.Time
	CompletedAt      *time.Time
	LastActivityAt   time.Time
}

// DecisionFormData is the intake record for the decision architect persona.
type DecisionFormData struct {
	DecisionContext string   `json:"contextoDecision"`
	Timeline        string   `json:"timeline"`
	Alternatives    []string `json:"alternativas"`
	Criteria        []string `json:"criterios"`
	MissingInfo     string   `json:"informacionFaltante"`
	PersonalContext string   `json:"contextoPersonal,omitempty"`
}
