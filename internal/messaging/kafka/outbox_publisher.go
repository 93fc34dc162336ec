package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// outboxEnvelope — формат сообщения outbox в topic заказов.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	// Ключ партиционирования — агрегат, чтобы события одного заказа
	// попадали в одну партицию и сохраняли порядок.
	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	data, err := json.Marshal(outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox envelope: %w", err)
	}

	headers := map[string]string{HeaderOriginalTopic: p.topic}
	return p.producer.Publish(p.topic, key, data, headers)
}
