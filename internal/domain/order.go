package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в back-office.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, сток по позициям зарезервирован.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusDelivered — заказ доставлен; запись заказа удаляется,
	// резерв не возвращается.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCanceled — заказ отменён; сток по каждой позиции возвращается,
	// запись заказа удаляется.
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusDelivered, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// Consuming сообщает, удаляет ли переход в этот статус запись заказа.
// Терминального "закрытого" состояния нет: в хранилище живут только PENDING.
func (s OrderStatus) Consuming() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID        int64
	ProductID int64
	// Qty — количество единиц товара, зарезервированных позицией.
	Qty int32
	// PriceMinor — цена за единицу в сентаво, снимок на момент создания позиции.
	// Последующие изменения цены товара на позицию не влияют.
	PriceMinor int64
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID        int64
	ClientID  int64
	Status    OrderStatus
	Items     []OrderItem
	CreatedAt time.Time
}

// TotalItems возвращает суммарное количество единиц по всем позициям.
// Значение производное и не хранится.
func (o *Order) TotalItems() int32 {
	var total int32
	for _, item := range o.Items {
		total += item.Qty
	}
	return total
}

// TotalMinor возвращает стоимость заказа в сентаво: сумма qty * price по позициям.
func (o *Order) TotalMinor() int64 {
	var total int64
	for _, item := range o.Items {
		total += int64(item.Qty) * item.PriceMinor
	}
	return total
}

// StockDeltas возвращает суммарное количество по каждому товару заказа.
// Дубли одного product_id в позициях складываются.
func (o *Order) StockDeltas() map[int64]int32 {
	deltas := make(map[int64]int32, len(o.Items))
	for _, item := range o.Items {
		deltas[item.ProductID] += item.Qty
	}
	return deltas
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ClientID == 0 {
		errs = append(errs, ErrClientRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.ProductID == 0 {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
