// Package orders реализует согласование заказов и остатков: резервирование
// при создании, возврат при отмене и целостность остатков при любой ошибке.
package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/messaging/kafka"
	"github.com/Welison92/luestilo-backoffice/internal/metrics"
)

// ItemInput — запрошенная позиция заказа: товар и количество.
// Цена не принимается снаружи: она снимается с товара в момент резервирования.
type ItemInput struct {
	ProductID int64
	Qty       int32
}

// CreateInput описывает запрос на создание заказа.
type CreateInput struct {
	ClientID int64
	Items    []ItemInput
}

// UpdateInput описывает запрос на изменение заказа. Nil-поля не трогаются.
type UpdateInput struct {
	Status *domain.OrderStatus
	Items  []ItemInput
}

// Filter задаёт условия листинга. Фильтры применяются последовательно:
// id → клиент → период → секция → статус; первый фильтр, опустошивший
// выборку, называется в EmptyFilterError.
type Filter struct {
	OrderID  int64
	ClientID int64
	// From и To — границы периода по дате создания, обе включительно.
	From *time.Time
	To   *time.Time
	// Section оставляет заказы, где хотя бы одна позиция относится к секции.
	Section string
	Status  string
	Page    int
	Limit   int
}

// Reconciler описывает операции над заказами.
//
// Параметр forClient ограничивает доступ: положительное значение означает,
// что запрос сделан от имени клиента и чужие заказы недоступны; ноль —
// запрос сотрудника без ограничений.
type Reconciler interface {
	Create(input CreateInput, forClient int64) (domain.Order, error)
	Get(id int64, forClient int64) (domain.Order, error)
	List(filter Filter, forClient int64) ([]domain.Order, error)
	Update(id int64, input UpdateInput, forClient int64) (domain.Order, error)
	Delete(id int64, forClient int64) error
	History(orderID int64, forClient int64) ([]domain.HistoryEvent, error)
	// ReleaseClientOrders снимает резерв всех открытых заказов клиента.
	// Вызывается при удалении клиента.
	ReleaseClientOrders(clientID int64) (int, error)
}

type reconciler struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	clients  domain.ClientRepository
	history  domain.HistoryRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
}

// NewReconciler создаёт рабочий экземпляр сервиса заказов.
func NewReconciler(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	clients domain.ClientRepository,
	history domain.HistoryRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Reconciler {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &reconciler{
		orders:   orders,
		products: products,
		clients:  clients,
		history:  history,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewOrderMetrics(),
	}
}

// NewReconcilerWithoutMetrics создаёт сервис без метрик (для тестов).
func NewReconcilerWithoutMetrics(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	clients domain.ClientRepository,
	history domain.HistoryRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Reconciler {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &reconciler{
		orders:   orders,
		products: products,
		clients:  clients,
		history:  history,
		outbox:   outbox,
		logger:   logger,
	}
}

// Create резервирует остатки и создаёт заказ. Все проверки выполняются до
// первой записи: невалидный запрос не оставляет следов ни в заказах, ни в
// остатках.
func (r *reconciler) Create(input CreateInput, forClient int64) (domain.Order, error) {
	start := time.Now()
	defer r.recordDuration("create", start)

	if input.ClientID == 0 {
		return domain.Order{}, domain.ErrClientRequired
	}
	if forClient > 0 && forClient != input.ClientID {
		return domain.Order{}, domain.ErrOrderForbidden
	}
	if _, err := r.clients.Get(input.ClientID); err != nil {
		return domain.Order{}, err
	}

	items, err := r.buildItems(input.Items)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ClientID:  input.ClientID,
		Status:    domain.OrderStatusPending,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}

	created, err := r.orders.Create(order)
	if err != nil {
		if domain.IsInsufficientStock(err) {
			if r.metrics != nil {
				r.metrics.RecordOrderRejected()
			}
			r.enqueueEvent(kafka.EventTypeStockRejected, order, map[string]interface{}{"reason": err.Error()})
			r.logger.WithError(err).WithField("client_id", input.ClientID).Info("order rejected: insufficient stock")
		}
		return domain.Order{}, err
	}

	if r.metrics != nil {
		r.metrics.RecordOrderCreated()
	}
	r.appendHistory(created.ID, created.ClientID, "created", "")
	r.enqueueEvent(kafka.EventTypeOrderCreated, created, nil)

	r.logger.WithFields(log.Fields{
		"order_id":  created.ID,
		"client_id": created.ClientID,
		"items":     len(created.Items),
	}).Info("order created")

	return created, nil
}

func (r *reconciler) Get(id int64, forClient int64) (domain.Order, error) {
	order, err := r.orders.Get(id)
	if err != nil {
		return domain.Order{}, err
	}
	if forClient > 0 && order.ClientID != forClient {
		return domain.Order{}, domain.ErrOrderForbidden
	}
	return order, nil
}

// List применяет фильтры к выборке заказов по одному: клиент, id заказа,
// период, секция, статус. Клиентский фильтр идёт первым, потому что для
// клиентского токена он совпадает с ограничением владельца и сужает выборку
// до разрешённой ещё до остальных проверок. Как только очередной фильтр
// оставляет пустую выборку, возвращается EmptyFilterError с его именем: так
// ответ API объясняет, какое именно условие не нашло заказов.
func (r *reconciler) List(filter Filter, forClient int64) ([]domain.Order, error) {
	start := time.Now()
	defer r.recordDuration("list", start)

	if forClient > 0 {
		if filter.ClientID > 0 && filter.ClientID != forClient {
			return nil, domain.ErrOrderForbidden
		}
		filter.ClientID = forClient
	}

	var (
		orders []domain.Order
		err    error
	)
	if filter.ClientID > 0 {
		orders, err = r.orders.ListByClient(filter.ClientID)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			return nil, &domain.EmptyFilterError{Filter: "client_id", Value: strconv.FormatInt(filter.ClientID, 10)}
		}
	} else {
		orders, err = r.orders.ListAll()
		if err != nil {
			return nil, err
		}
	}

	if filter.OrderID > 0 {
		orders = keep(orders, func(o domain.Order) bool { return o.ID == filter.OrderID })
		if len(orders) == 0 {
			return nil, &domain.EmptyFilterError{Filter: "id", Value: strconv.FormatInt(filter.OrderID, 10)}
		}
	}

	if filter.From != nil || filter.To != nil {
		orders = keep(orders, func(o domain.Order) bool {
			if filter.From != nil && o.CreatedAt.Before(*filter.From) {
				return false
			}
			if filter.To != nil && o.CreatedAt.After(*filter.To) {
				return false
			}
			return true
		})
		if len(orders) == 0 {
			return nil, &domain.EmptyFilterError{Filter: "period", Value: formatPeriod(filter.From, filter.To)}
		}
	}

	if filter.Section != "" {
		orders, err = r.filterBySection(orders, filter.Section)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			return nil, &domain.EmptyFilterError{Filter: "section", Value: filter.Section}
		}
	}

	if filter.Status != "" {
		status := domain.OrderStatus(filter.Status)
		if !status.Valid() {
			return nil, domain.ErrOrderStatusInvalid
		}
		orders = keep(orders, func(o domain.Order) bool { return o.Status == status })
		if len(orders) == 0 {
			return nil, &domain.EmptyFilterError{Filter: "status", Value: filter.Status}
		}
	}

	return paginate(orders, filter.Page, filter.Limit), nil
}

// Update изменяет заказ: замена позиций и/или перевод статуса.
// Замена позиций проверяется целиком до какой-либо записи; переходы
// DELIVERED и CANCELED поглощают запись заказа, CANCELED дополнительно
// возвращает остатки.
func (r *reconciler) Update(id int64, input UpdateInput, forClient int64) (domain.Order, error) {
	start := time.Now()
	defer r.recordDuration("update", start)

	order, err := r.Get(id, forClient)
	if err != nil {
		return domain.Order{}, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return domain.Order{}, domain.ErrOrderStatusInvalid
	}

	if input.Items != nil {
		items, err := r.buildItems(input.Items)
		if err != nil {
			return domain.Order{}, err
		}

		order, err = r.orders.ReplaceItems(id, items)
		if err != nil {
			if domain.IsInsufficientStock(err) && r.metrics != nil {
				r.metrics.RecordOrderRejected()
			}
			return domain.Order{}, err
		}

		r.appendHistory(id, order.ClientID, "items_replaced", "")
		r.enqueueEvent(kafka.EventTypeOrderUpdated, order, map[string]interface{}{"items": len(order.Items)})
	}

	if input.Status != nil && *input.Status != order.Status {
		switch *input.Status {
		case domain.OrderStatusDelivered:
			if err := r.orders.Delete(id, false); err != nil {
				return domain.Order{}, err
			}
			order.Status = domain.OrderStatusDelivered
			if r.metrics != nil {
				r.metrics.RecordOrderDelivered()
			}
			r.appendHistory(id, order.ClientID, "delivered", "")
			r.enqueueEvent(kafka.EventTypeOrderDelivered, order, nil)
		case domain.OrderStatusCanceled:
			if err := r.orders.Delete(id, true); err != nil {
				return domain.Order{}, err
			}
			order.Status = domain.OrderStatusCanceled
			if r.metrics != nil {
				r.metrics.RecordOrderCanceled()
			}
			r.appendHistory(id, order.ClientID, "canceled", "")
			r.enqueueEvent(kafka.EventTypeOrderCanceled, order, nil)
		}

		r.logger.WithFields(log.Fields{
			"order_id": id,
			"status":   string(order.Status),
		}).Info("order status changed")
	}

	return order, nil
}

// Delete удаляет открытый заказ и возвращает остатки по его позициям.
func (r *reconciler) Delete(id int64, forClient int64) error {
	start := time.Now()
	defer r.recordDuration("delete", start)

	order, err := r.Get(id, forClient)
	if err != nil {
		return err
	}

	if err := r.orders.Delete(id, true); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.RecordOrderDeleted()
	}
	r.appendHistory(id, order.ClientID, "deleted", "")
	r.enqueueEvent(kafka.EventTypeOrderDeleted, order, nil)

	r.logger.WithField("order_id", id).Info("order deleted, stock restored")
	return nil
}

// History возвращает журнал заказа. Журнал переживает удаление заказа,
// поэтому события доступны и для доставленных, и для отменённых заказов;
// владелец проверяется по клиенту, записанному в событиях.
func (r *reconciler) History(orderID int64, forClient int64) ([]domain.HistoryEvent, error) {
	events, err := r.history.List(orderID)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		order, err := r.orders.Get(orderID)
		if err != nil {
			return nil, err
		}
		if forClient > 0 && order.ClientID != forClient {
			return nil, domain.ErrOrderForbidden
		}
		return events, nil
	}

	if forClient > 0 && events[0].ClientID != forClient {
		return nil, domain.ErrOrderForbidden
	}
	return events, nil
}

// ReleaseClientOrders удаляет все открытые заказы клиента, возвращая остатки.
func (r *reconciler) ReleaseClientOrders(clientID int64) (int, error) {
	orders, err := r.orders.ListByClient(clientID)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, order := range orders {
		if err := r.orders.Delete(order.ID, true); err != nil {
			return released, fmt.Errorf("release order %d: %w", order.ID, err)
		}
		released++
		if r.metrics != nil {
			r.metrics.RecordOrderDeleted()
		}
		r.appendHistory(order.ID, order.ClientID, "released", "client deleted")
		r.enqueueEvent(kafka.EventTypeOrderReleased, order, map[string]interface{}{"reason": "client deleted"})
	}

	if released > 0 {
		r.logger.WithFields(log.Fields{
			"client_id": clientID,
			"released":  released,
		}).Info("client orders released")
	}
	return released, nil
}

// buildItems проверяет запрошенные позиции и снимает с товаров текущую
// цену. Каждая позиция — новая резервация, поэтому цена снимается заново
// и при замене позиций существующего заказа.
func (r *reconciler) buildItems(inputs []ItemInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrItemsRequired
	}

	items := make([]domain.OrderItem, 0, len(inputs))
	for _, input := range inputs {
		if input.ProductID == 0 {
			return nil, domain.ErrItemProductRequired
		}
		if input.Qty <= 0 {
			return nil, domain.ErrItemQtyInvalid
		}

		product, err := r.products.Get(input.ProductID)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.OrderItem{
			ProductID:  input.ProductID,
			Qty:        input.Qty,
			PriceMinor: product.PriceMinor,
		})
	}

	return items, nil
}

func (r *reconciler) filterBySection(orders []domain.Order, section string) ([]domain.Order, error) {
	sections := make(map[int64]string)
	result := make([]domain.Order, 0, len(orders))

	for _, order := range orders {
		match := false
		for _, item := range order.Items {
			productSection, ok := sections[item.ProductID]
			if !ok {
				product, err := r.products.Get(item.ProductID)
				if err != nil {
					// Товар мог быть удалён после создания заказа.
					if domain.IsNotFound(err) {
						sections[item.ProductID] = ""
						continue
					}
					return nil, err
				}
				productSection = product.Section
				sections[item.ProductID] = productSection
			}
			if strings.EqualFold(productSection, section) {
				match = true
				break
			}
		}
		if match {
			result = append(result, order)
		}
	}

	return result, nil
}

func (r *reconciler) appendHistory(orderID, clientID int64, eventType, reason string) {
	event := domain.HistoryEvent{
		OrderID:  orderID,
		ClientID: clientID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := r.history.Append(event); err != nil {
		r.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append history event")
		return
	}
	if r.metrics != nil {
		r.metrics.RecordHistoryEvent()
	}
}

func (r *reconciler) enqueueEvent(eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) {
	if r.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.ClientID, string(order.Status), order.TotalMinor(), metadata)
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	if _, err := r.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		r.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue outbox event")
		return
	}
	if r.metrics != nil {
		r.metrics.RecordOutboxEvent()
	}
}

func (r *reconciler) recordDuration(op string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordOpDuration(op, time.Since(start))
	}
}

func keep(orders []domain.Order, predicate func(domain.Order) bool) []domain.Order {
	result := orders[:0:0]
	for _, order := range orders {
		if predicate(order) {
			result = append(result, order)
		}
	}
	return result
}

func paginate(orders []domain.Order, page, limit int) []domain.Order {
	if limit <= 0 {
		return orders
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(orders) {
		return []domain.Order{}
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end]
}

func formatPeriod(from, to *time.Time) string {
	const layout = "2006-01-02"
	switch {
	case from != nil && to != nil:
		return from.Format(layout) + ".." + to.Format(layout)
	case from != nil:
		return from.Format(layout) + ".."
	case to != nil:
		return ".." + to.Format(layout)
	default:
		return ""
	}
}
