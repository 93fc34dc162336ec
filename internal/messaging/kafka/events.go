package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderUpdated   EventType = "order.updated"
	EventTypeOrderDelivered EventType = "order.delivered"
	EventTypeOrderCanceled  EventType = "order.canceled"
	EventTypeOrderDeleted   EventType = "order.deleted"
	EventTypeOrderReleased  EventType = "order.released"

	// Stock события
	EventTypeStockRejected EventType = "stock.rejected"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "backoffice.order.events"
	TopicDeadLetterQueue = "backoffice.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    int64                  `json:"order_id"`
	ClientID   int64                  `json:"client_id"`
	Status     string                 `json:"status"`
	TotalMinor int64                  `json:"total_minor"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, clientID int64, status string, totalMinor int64, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		ClientID:   clientID,
		Status:     status,
		TotalMinor: totalMinor,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
