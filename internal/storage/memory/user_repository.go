package memory

import (
	"strings"
	"sync"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// userRepositoryInMemory — in-memory реализация UserRepository.
type userRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.User
	nextID int64
}

// NewUserRepository возвращает in-memory репозиторий пользователей.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{items: make(map[int64]domain.User)}
}

// Create сохраняет пользователя, проверяя уникальность email.
func (r *userRepositoryInMemory) Create(user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, domain.ErrEmailTaken
		}
	}

	r.nextID++
	user.ID = r.nextID
	r.items[user.ID] = user
	return user, nil
}

// Get возвращает пользователя или ErrUserNotFound.
func (r *userRepositoryInMemory) Get(id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// GetByEmail возвращает пользователя по email без учёта регистра.
func (r *userRepositoryInMemory) GetByEmail(email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.items {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Update перезаписывает пользователя.
func (r *userRepositoryInMemory) Update(user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, existing := range r.items {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	r.items[user.ID] = user
	return nil
}

// Delete удаляет пользователя.
func (r *userRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
