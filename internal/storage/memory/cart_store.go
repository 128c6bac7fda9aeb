package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// cartStoreInMemory держит сессии кассы в памяти процесса.
type cartStoreInMemory struct {
	mu       sync.Mutex
	sessions map[string]domain.CartSession
}

// NewCartStore создаёт in-memory CartStore с optimistic locking по Version.
func NewCartStore() domain.CartStore {
	return &cartStoreInMemory{sessions: make(map[string]domain.CartSession)}
}

func (s *cartStoreInMemory) Create(_ context.Context, session domain.CartSession) (domain.CartSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return domain.CartSession{}, domain.ErrCartVersionConflict
	}
	session.Version = 1
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = session
	return session, nil
}

func (s *cartStoreInMemory) Get(_ context.Context, id string) (domain.CartSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.CartSession{}, domain.ErrCartNotFound
	}
	return session, nil
}

func (s *cartStoreInMemory) Save(_ context.Context, session domain.CartSession) (domain.CartSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok {
		return domain.CartSession{}, domain.ErrCartNotFound
	}
	if current.Version != session.Version {
		return domain.CartSession{}, domain.ErrCartVersionConflict
	}
	session.Version++
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = session
	return session, nil
}

func (s *cartStoreInMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
