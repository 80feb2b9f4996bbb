package mapper

import (
	"encoding/json"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/model"

	"gorm.io/datatypes"
)

type AgentMapper struct{}

func NewAgentMapper() *AgentMapper {
	return &AgentMapper{}
}

// Session Mappers

func (m *AgentMapper) AgentSessionToEntity(s *model.AgentSession) *entity.AgentSession {
	if s == nil {
		return nil
	}

	// A malformed form payload degrades to "no form data"; the composer falls back to the stored template.
	var formData *entity.DecisionFormData
	if len(s.FormData) > 0 {
		var fd entity.DecisionFormData
		if err := json.Unmarshal(s.FormData, &fd); err == nil {
			formData = &fd
		}
	}

	return &entity.AgentSession{
		Id:               s.Id,
		UserId:           s.UserId,
		AgentType:        s.AgentType,
		FormData:         formData,
		GeneratedPrompt:  s.GeneratedPrompt,
		PromptTemplateId: s.PromptTemplateId,
		Status:           s.Status,
		CostCents:        s.CostCents,
		CreatedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
		LastActivityAt:   s.LastActivityAt,
	}
}

func (m *AgentMapper) AgentSessionToModel(s *entity.AgentSession) *model.AgentSession {
	if s == nil {
		return nil
	}

	formData := datatypes.JSON("{}")
	if s.FormData != nil {
		if raw, err := json.Marshal(s.FormData); err == nil {
			formData = datatypes.JSON(raw)
		}
	}

	return &model.AgentSession{
		Id:               s.Id,
		UserId:           s.UserId,
		AgentType:        s.AgentType,
		FormData:         formData,
		GeneratedPrompt:  s.GeneratedPrompt,
		PromptTemplateId: s.PromptTemplateId,
		Status:           s.Status,
		CostCents:        s.CostCents,
		CreatedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
		LastActivityAt:   s.LastActivityAt,
	}
}

// Message Mappers

func (m *AgentMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:             msg.Id,
		SessionId:      msg.SessionId,
		Role:           msg.Role,
		Content:        msg.Content,
		TokensUsed:     msg.TokensUsed,
		ResponseTimeMs: msg.ResponseTimeMs,
		Sequence:       msg.Sequence,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *AgentMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:             msg.Id,
		SessionId:      msg.SessionId,
		Role:           msg.Role,
		Content:        msg.Content,
		TokensUsed:     msg.TokensUsed,
		ResponseTimeMs: msg.ResponseTimeMs,
		Sequence:       msg.Sequence,
		CreatedAt:      msg.CreatedAt,
	}
}

// Profile Mappers

func (m *AgentMapper) UserProfileToEntity(p *model.UserProfile) *entity.UserProfile {
	if p == nil {
		return nil
	}
	return &entity.UserProfile{
		Id:                p.Id,
		Email:             p.Email,
		FullName:          p.FullName,
		SubscriptionPlan:  p.SubscriptionPlan,
		UsageCount:        p.UsageCount,
		MonthlyUsageReset: p.MonthlyUsageReset,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (m *AgentMapper) UserProfileToModel(p *entity.UserProfile) *model.UserProfile {
	if p == nil {
		return nil
	}
	return &model.UserProfile{
		Id:                p.Id,
		Email:             p.Email,
		FullName:          p.FullName,
		SubscriptionPlan:  p.SubscriptionPlan,
		UsageCount:        p.UsageCount,
		MonthlyUsageReset: p.MonthlyUsageReset,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// Usage Log Mappers

func (m *AgentMapper) UsageLogToEntity(l *model.UsageLog) *entity.UsageLog {
	if l == nil {
		return nil
	}
	var data map[string]interface{}
	if len(l.EventData) > 0 {
		_ = json.Unmarshal(l.EventData, &data)
	}
	return &entity.UsageLog{
		Id:        l.Id,
		UserId:    l.UserId,
		SessionId: l.SessionId,
		MessageId: l.MessageId,
		EventType: l.EventType,
		EventData: data,
		CostCents: l.CostCents,
		CreatedAt: l.CreatedAt,
	}
}

func (m *AgentMapper) UsageLogToModel(l *entity.UsageLog) *model.UsageLog {
	if l == nil {
		return nil
	}
	var data datatypes.JSON
	if l.EventData != nil {
		if raw, err := json.Marshal(l.EventData); err == nil {
			data = datatypes.JSON(raw)
		}
	}
	return &model.UsageLog{
		Id:        l.Id,
		UserId:    l.UserId,
		SessionId: l.SessionId,
		MessageId: l.MessageId,
		EventType: l.EventType,
		EventData: data,
		CostCents: l.CostCents,
		CreatedAt: l.CreatedAt,
	}
}

// Template Mappers

func (m *AgentMapper) PromptTemplateToEntity(t *model.PromptTemplate) *entity.PromptTemplate {
	if t == nil {
		return nil
	}
	var vars map[string]interface{}
	if len(t.Variables) > 0 {
		_ = json.Unmarshal(t.Variables, &vars)
	}
	return &entity.PromptTemplate{
		Id:               t.Id,
		AgentType:        t.AgentType,
		Version:          t.Version,
		TemplateContent:  t.TemplateContent,
		Variables:        vars,
		IsActive:         t.IsActive,
		PerformanceScore: t.PerformanceScore,
		CreatedAt:        t.CreatedAt,
	}
}

func (m *AgentMapper) PromptTemplateToModel(t *entity.PromptTemplate) *model.PromptTemplate {
	if t == nil {
		return nil
	}
	var vars datatypes.JSON
	if t.Variables != nil {
		if raw, err := json.Marshal(t.Variables); err == nil {
			vars = datatypes.JSON(raw)
		}
	}
	return &model.PromptTemplate{
		Id:               t.Id,
		AgentType:        t.AgentType,
		Version:          t.Version,
		TemplateContent:  t.TemplateContent,
		Variables:        vars,
		IsActive:         t.IsActive,
		PerformanceScore: t.PerformanceScore,
		CreatedAt:        t.CreatedAt,
	}
}
