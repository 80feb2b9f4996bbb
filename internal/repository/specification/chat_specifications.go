package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByMessageID struct {
	MessageID uuid.UUID
}

func (s ByMessageID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("message_id = ?", s.MessageID)
}

// TranscriptOrder sorts messages the way the conversation happened.
type TranscriptOrder struct{}

func (s TranscriptOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("sequence ASC")
}

// ActiveTemplate selects the newest active prompt template for an agent persona.
type ActiveTemplate struct {
	AgentType string
}

func (s ActiveTemplate) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("agent_type = ? AND is_active = ?", s.AgentType, true).Order("created_at DESC")
}

// UsageWindowStartedBefore matches profiles whose monthly window opened at or before Cutoff.
type UsageWindowStartedBefore struct {
	Cutoff time.Time
}

func (s UsageWindowStartedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("monthly_usage_reset <= ?", s.Cutoff)
}
