package domain

import (
	"io"
	"time"
)

// FileStore описывает внешнее файловое хранилище изображений товаров.
// Ядру достаточно пары операций: сохранить байты под именем и удалить по ссылке.
type FileStore interface {
	// Save записывает содержимое под относительным именем и возвращает
	// публичную ссылку на файл.
	Save(name string, data io.Reader) (string, error)
	// Remove удаляет файл по ссылке, полученной из Save.
	Remove(ref string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
