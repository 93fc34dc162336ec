package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// outboxRecord хранит сообщение и служебные поля in-memory реализации.
type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
}

// outboxRepositoryInMemory — in-memory хранилище transactional outbox.
// Порядок вставки сохраняется, чтобы PullPending отдавал FIFO как и
// PostgreSQL-реализация.
type outboxRepositoryInMemory struct {
	mu      sync.RWMutex
	records map[string]*outboxRecord
	order   []string
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{records: make(map[string]*outboxRecord)}
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)

func (r *outboxRepositoryInMemory) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	r.records[msg.ID] = &outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: time.Now().UTC(),
	}
	r.order = append(r.order, msg.ID)
	return msg, nil
}

func (r *outboxRepositoryInMemory) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	batch := make([]domain.OutboxMessage, 0, limit)
	for _, id := range r.order {
		rec := r.records[id]
		if rec == nil || rec.status != "pending" {
			continue
		}
		batch = append(batch, rec.msg)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (r *outboxRepositoryInMemory) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, id := range r.order {
		rec := r.records[id]
		if rec == nil || rec.status != "pending" {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = rec.createdAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

func (r *outboxRepositoryInMemory) MarkSent(id string) error {
	return r.transition(id, "sent")
}

func (r *outboxRepositoryInMemory) MarkFailed(id string) error {
	return r.transition(id, "failed")
}

func (r *outboxRepositoryInMemory) transition(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	rec.status = status
	rec.attempts++
	return nil
}

// AllPending возвращает копию pending-сообщений; используется в тестах.
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]domain.OutboxMessage, 0, len(r.order))
	for _, id := range r.order {
		if rec := r.records[id]; rec != nil && rec.status == "pending" {
			pending = append(pending, rec.msg)
		}
	}
	return pending
}
