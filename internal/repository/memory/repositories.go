package memory

import (
	"context"
	"sort"
	"time"

	"agent-catalog-be/internal/entity"

	"github.com/google/uuid"
)

// Sessions

type agentSessionRepository struct {
	store *Store
	uow   *UnitOfWorkImpl
}

func (r *agentSessionRepository) Create(ctx context.Context, session *entity.AgentSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	id := session.Id
	r.store.sessions[id] = *session
	r.uow.record(func() { delete(r.store.sessions, id) })
	return nil
}

func (r *agentSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok {
		return ErrNotFound
	}
	prev := s
	s.Status = status
	s.CompletedAt = completedAt
	r.store.sessions[id] = s
	r.uow.record(func() { r.store.sessions[id] = prev })
	return nil
}

func (r *agentSessionRepository) FindOwned(ctx context.Context, id, userId uuid.UUID) (*entity.AgentSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok || s.UserId != userId {
		return nil, nil
	}
	return &s, nil
}

func (r *agentSessionRepository) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.AgentSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*entity.AgentSession, 0)
	for _, s := range r.store.sessions {
		if s.UserId == userId {
			s := s
			result = append(result, &s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt.After(result[j].LastActivityAt)
	})
	return result, nil
}

func (r *agentSessionRepository) AddCost(ctx context.Context, id uuid.UUID, cents int, touchedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok {
		return ErrNotFound
	}
	prevActivity := s.LastActivityAt
	s.CostCents += cents
	s.LastActivityAt = touchedAt
	r.store.sessions[id] = s
	r.uow.record(func() {
		cur := r.store.sessions[id]
		cur.CostCents -= cents
		if cur.LastActivityAt.Equal(touchedAt) {
			cur.LastActivityAt = prevActivity
		}
		r.store.sessions[id] = cur
	})
	return nil
}

// Messages

type chatMessageRepository struct {
	store *Store
	uow   *UnitOfWorkImpl
}

func (r *chatMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if _, exists := r.store.messages[message.Id]; exists {
		return false, nil
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	r.store.sequence++
	message.Sequence = r.store.sequence

	id := message.Id
	r.store.messages[id] = *message
	r.uow.record(func() { delete(r.store.messages, id) })
	return true, nil
}

func (r *chatMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	m, ok := r.store.messages[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *chatMessageRepository) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*entity.ChatMessage, 0)
	for _, m := range r.store.messages {
		if m.SessionId == sessionId {
			m := m
			result = append(result, &m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

func (r *chatMessageRepository) CountBySession(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var count int64
	for _, m := range r.store.messages {
		if m.SessionId == sessionId {
			count++
		}
	}
	return count, nil
}

// Profiles

type userProfileRepository struct {
	store *Store
	uow   *UnitOfWorkImpl
}

func (r *userProfileRepository) Create(ctx context.Context, profile *entity.UserProfile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if profile.Id == uuid.Nil {
		profile.Id = uuid.New()
	}
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.MonthlyUsageReset.IsZero() {
		profile.MonthlyUsageReset = now
	}
	id := profile.Id
	r.store.profiles[id] = *profile
	r.uow.record(func() { delete(r.store.profiles, id) })
	return nil
}

func (r *userProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.UserProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *userProfileRepository) FindByEmail(ctx context.Context, email string) (*entity.UserProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, p := range r.store.profiles {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r *userProfileRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.UsageCount++
	r.store.profiles[id] = p
	r.uow.record(func() {
		cur := r.store.profiles[id]
		cur.UsageCount--
		r.store.profiles[id] = cur
	})
	return nil
}

func (r *userProfileRepository) ResetUsage(ctx context.Context, cutoff, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var affected int64
	for id, p := range r.store.profiles {
		if p.MonthlyUsageReset.After(cutoff) {
			continue
		}
		prev := p
		p.UsageCount = 0
		p.MonthlyUsageReset = now
		r.store.profiles[id] = p
		key := id
		r.uow.record(func() { r.store.profiles[key] = prev })
		affected++
	}
	return affected, nil
}

// Usage logs

type usageLogRepository struct {
	store *Store
	uow   *UnitOfWorkImpl
}

func (r *usageLogRepository) Append(ctx context.Context, log *entity.UsageLog) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if log.MessageId != nil {
		for _, existing := range r.store.usageLogs {
			if existing.MessageId != nil && *existing.MessageId == *log.MessageId {
				return false, nil
			}
		}
	}
	if log.Id == uuid.Nil {
		log.Id = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	id := log.Id
	r.store.usageLogs[id] = *log
	r.uow.record(func() { delete(r.store.usageLogs, id) })
	return true, nil
}

func (r *usageLogRepository) FindByMessageID(ctx context.Context, messageId uuid.UUID) (*entity.UsageLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, l := range r.store.usageLogs {
		if l.MessageId != nil && *l.MessageId == messageId {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (r *usageLogRepository) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.UsageLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*entity.UsageLog, 0)
	for _, l := range r.store.usageLogs {
		if l.UserId == userId {
			l := l
			result = append(result, &l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Prompt templates

type promptTemplateRepository struct {
	store *Store
	uow   *UnitOfWorkImpl
}

func (r *promptTemplateRepository) Create(ctx context.Context, template *entity.PromptTemplate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if template.Id == uuid.Nil {
		template.Id = uuid.New()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}
	id := template.Id
	r.store.templates[id] = *template
	r.uow.record(func() { delete(r.store.templates, id) })
	return nil
}

func (r *promptTemplateRepository) FindActive(ctx context.Context, agentType string) (*entity.PromptTemplate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var newest *entity.PromptTemplate
	for _, t := range r.store.templates {
		if t.AgentType != agentType || !t.IsActive {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			t := t
			newest = &t
		}
	}
	return newest, nil
}
