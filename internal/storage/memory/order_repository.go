package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
//
// Атомарность "заказ + остатки" обеспечивается тем, что единственной точкой
// изменения остатков служит ProductRepository.AdjustStock: набор дельт
// применяется либо целиком, либо никак, а запись заказа выполняется только
// после успешного применения.
type orderRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[int64]domain.Order
	products   domain.ProductRepository
	nextID     int64
	nextItemID int64
}

// NewOrderRepository возвращает in-memory репозиторий заказов поверх
// репозитория каталога.
func NewOrderRepository(products domain.ProductRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[int64]domain.Order),
		products: products,
	}
}

// Create списывает остатки по позициям и сохраняет заказ. При нехватке
// по любой позиции запись не создаётся и списаний не остаётся.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	debits := make(map[int64]int32)
	for productID, qty := range order.StockDeltas() {
		debits[productID] = -qty
	}
	if err := r.products.AdjustStock(debits); err != nil {
		return domain.Order{}, err
	}

	r.nextID++
	order.ID = r.nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.Items = r.assignItemIDs(order.Items)
	r.items[order.ID] = order
	return copyOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// ListAll возвращает все заказы, старые первыми.
func (r *orderRepositoryInMemory) ListAll() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		result = append(result, copyOrder(order))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListByClient возвращает заказы клиента, старые первыми.
func (r *orderRepositoryInMemory) ListByClient(clientID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.ClientID == clientID {
			result = append(result, copyOrder(order))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ReplaceItems заменяет позиции заказа, применяя чистую разницу остатков
// одним атомарным набором дельт.
func (r *orderRepositoryInMemory) ReplaceItems(orderID int64, items []domain.OrderItem) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	// Возврат по старым позициям и списание по новым в одном наборе:
	// двухшаговое применение оставило бы частичное состояние при нехватке.
	replacement := domain.Order{Items: items}
	deltas := order.StockDeltas()
	for productID, qty := range replacement.StockDeltas() {
		deltas[productID] -= qty
	}
	if err := r.products.AdjustStock(deltas); err != nil {
		return domain.Order{}, err
	}

	order.Items = r.assignItemIDs(items)
	r.items[orderID] = order
	return copyOrder(order), nil
}

// Delete удаляет заказ; при restoreStock возвращает остатки по позициям.
func (r *orderRepositoryInMemory) Delete(id int64, restoreStock bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if restoreStock {
		if err := r.products.AdjustStock(order.StockDeltas()); err != nil {
			return err
		}
	}
	delete(r.items, id)
	return nil
}

// assignItemIDs выдаёт позициям последовательные идентификаторы.
// Вызывается под блокировкой.
func (r *orderRepositoryInMemory) assignItemIDs(items []domain.OrderItem) []domain.OrderItem {
	assigned := make([]domain.OrderItem, len(items))
	copy(assigned, items)
	for i := range assigned {
		r.nextItemID++
		assigned[i].ID = r.nextItemID
	}
	return assigned
}

func copyOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
