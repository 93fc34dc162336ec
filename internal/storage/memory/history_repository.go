package memory

import (
	"sync"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// historyRepositoryInMemory — in-memory реализация HistoryRepository.
// Журнал только дописывается; события переживают удаление заказа.
type historyRepositoryInMemory struct {
	mu     sync.RWMutex
	events []domain.HistoryEvent
	nextID int64
}

// NewHistoryRepository возвращает in-memory журнал событий заказов.
func NewHistoryRepository() domain.HistoryRepository {
	return &historyRepositoryInMemory{}
}

// Append дописывает событие в журнал.
func (r *historyRepositoryInMemory) Append(event domain.HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, event)
	return nil
}

// List возвращает события заказа в порядке записи.
func (r *historyRepositoryInMemory) List(orderID int64) ([]domain.HistoryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.HistoryEvent, 0)
	for _, event := range r.events {
		if event.OrderID == orderID {
			result = append(result, event)
		}
	}
	return result, nil
}

var _ domain.HistoryRepository = (*historyRepositoryInMemory)(nil)
