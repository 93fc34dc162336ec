package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// clientRepositoryInMemory — in-memory реализация ClientRepository.
type clientRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Client
	nextID int64
}

// NewClientRepository возвращает in-memory репозиторий клиентов.
func NewClientRepository() domain.ClientRepository {
	return &clientRepositoryInMemory{items: make(map[int64]domain.Client)}
}

// Create сохраняет клиента, контролируя уникальность email и CPF.
func (r *clientRepositoryInMemory) Create(client domain.Client) (domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, client.Email) {
			return domain.Client{}, domain.ErrEmailTaken
		}
		if existing.CPF == client.CPF {
			return domain.Client{}, domain.ErrCPFTaken
		}
	}

	r.nextID++
	client.ID = r.nextID
	r.items[client.ID] = client
	return client, nil
}

// Get возвращает клиента или ErrClientNotFound.
func (r *clientRepositoryInMemory) Get(id int64) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.items[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return client, nil
}

// GetByEmail возвращает клиента по email без учёта регистра.
func (r *clientRepositoryInMemory) GetByEmail(email string) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.items {
		if strings.EqualFold(client.Email, email) {
			return client, nil
		}
	}
	return domain.Client{}, domain.ErrClientNotFound
}

// GetByCPF возвращает клиента по нормализованному CPF.
func (r *clientRepositoryInMemory) GetByCPF(cpf string) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.items {
		if client.CPF == cpf {
			return client, nil
		}
	}
	return domain.Client{}, domain.ErrClientNotFound
}

// List возвращает страницу клиентов с фильтрами по имени и email.
func (r *clientRepositoryInMemory) List(filter domain.ClientFilter) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Client, 0, len(r.items))
	for _, client := range r.items {
		if filter.Name != "" && !strings.Contains(strings.ToLower(client.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Email != "" && !strings.Contains(strings.ToLower(client.Email), strings.ToLower(filter.Email)) {
			continue
		}
		result = append(result, client)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, filter.Page, filter.Limit), nil
}

// Update перезаписывает клиента с теми же проверками уникальности.
func (r *clientRepositoryInMemory) Update(client domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[client.ID]; !ok {
		return domain.ErrClientNotFound
	}
	for id, existing := range r.items {
		if id == client.ID {
			continue
		}
		if strings.EqualFold(existing.Email, client.Email) {
			return domain.ErrEmailTaken
		}
		if existing.CPF == client.CPF {
			return domain.ErrCPFTaken
		}
	}

	r.items[client.ID] = client
	return nil
}

// Delete удаляет клиента.
func (r *clientRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrClientNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.ClientRepository = (*clientRepositoryInMemory)(nil)
