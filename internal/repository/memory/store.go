package memory

import (
	"context"
	"errors"
	"sync"

	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/repository/contract"
	"agent-catalog-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Store keeps every table in process memory. Writes inside a unit of work are
// visible immediately and undone on Rollback.
type Store struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]entity.AgentSession
	messages  map[uuid.UUID]entity.ChatMessage
	profiles  map[uuid.UUID]entity.UserProfile
	usageLogs map[uuid.UUID]entity.UsageLog
	templates map[uuid.UUID]entity.PromptTemplate
	sequence  int64
}

var ErrNotFound = errors.New("record not found")

func NewStore() *Store {
	return &Store{
		sessions:  make(map[uuid.UUID]entity.AgentSession),
		messages:  make(map[uuid.UUID]entity.ChatMessage),
		profiles:  make(map[uuid.UUID]entity.UserProfile),
		usageLogs: make(map[uuid.UUID]entity.UsageLog),
		templates: make(map[uuid.UUID]entity.PromptTemplate),
	}
}

type RepositoryFactoryImpl struct {
	store *Store
}

func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactoryImpl{store: store}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWorkImpl{store: f.store}
}

type UnitOfWorkImpl struct {
	store *Store
	undo  []func()
	inTx  bool
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.inTx {
		return errors.New("transaction already started")
	}
	u.inTx = true
	u.undo = nil
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if !u.inTx {
		return errors.New("no transaction to commit")
	}
	u.inTx = false
	u.undo = nil
	return nil
}

func (u *UnitOfWorkImpl) Rollback() error {
	if !u.inTx {
		return errors.New("no transaction to rollback")
	}
	u.store.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.store.mu.Unlock()
	u.inTx = false
	u.undo = nil
	return nil
}

// record registers an undo step; callers hold store.mu.
func (u *UnitOfWorkImpl) record(fn func()) {
	if u.inTx {
		u.undo = append(u.undo, fn)
	}
}

func (u *UnitOfWorkImpl) AgentSessionRepository() contract.AgentSessionRepository {
	return &agentSessionRepository{store: u.store, uow: u}
}

func (u *UnitOfWorkImpl) ChatMessageRepository() contract.ChatMessageRepository {
	return &chatMessageRepository{store: u.store, uow: u}
}

func (u *UnitOfWorkImpl) UserProfileRepository() contract.UserProfileRepository {
	return &userProfileRepository{store: u.store, uow: u}
}

func (u *UnitOfWorkImpl) UsageLogRepository() contract.UsageLogRepository {
	return &usageLogRepository{store: u.store, uow: u}
}

func (u *UnitOfWorkImpl) PromptTemplateRepository() contract.PromptTemplateRepository {
	return &promptTemplateRepository{store: u.store, uow: u}
}
