package memory

import (
	"sync"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// sessionRepositoryInMemory — in-memory реализация SessionRepository.
type sessionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Session
}

// NewSessionRepository возвращает in-memory хранилище сессий.
func NewSessionRepository() domain.SessionRepository {
	return &sessionRepositoryInMemory{items: make(map[string]domain.Session)}
}

// Create сохраняет сессию по её токену.
func (r *sessionRepositoryInMemory) Create(session domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[session.Token] = session
	return session, nil
}

// Get возвращает сессию или ErrSessionNotFound.
func (r *sessionRepositoryInMemory) Get(token string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[token]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete удаляет сессию.
func (r *sessionRepositoryInMemory) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[token]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.items, token)
	return nil
}

// DeleteExpired удаляет до limit просроченных сессий.
func (r *sessionRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, session := range r.items {
		if limit > 0 && removed >= limit {
			break
		}
		if session.TTLAt.Before(before) {
			delete(r.items, token)
			removed++
		}
	}
	return removed, nil
}

var _ domain.SessionRepository = (*sessionRepositoryInMemory)(nil)
