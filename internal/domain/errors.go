package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrClientRequired = errors.New("client_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего товара в позиции заказа.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")

	// Ошибки обязательных полей товара.
	ErrDescriptionRequired = errors.New("product description is required")
	ErrBarcodeRequired     = errors.New("product barcode is required")
	ErrSectionRequired     = errors.New("product section is required")
	ErrPriceNegative       = errors.New("product price must be non-negative")
	ErrStockNegative       = errors.New("product stock must be non-negative")

	// Ошибки обязательных/некорректных полей клиента.
	ErrNameRequired     = errors.New("client name is required")
	ErrLastNameRequired = errors.New("client last name is required")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrCPFInvalid       = errors.New("cpf format is invalid")
	ErrPhoneInvalid     = errors.New("phone format is invalid")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrClientNotFound возвращается, если клиент не найден.
	ErrClientNotFound = errors.New("client not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrImageNotFound возвращается, если изображение товара не найдено.
	ErrImageNotFound = errors.New("product image not found")

	// Конфликты уникальности при записи.
	ErrBarcodeTaken = errors.New("product barcode already registered")
	ErrEmailTaken   = errors.New("email already registered")
	ErrCPFTaken     = errors.New("cpf already registered")

	// ErrOrderForbidden — заказ принадлежит другому клиенту.
	ErrOrderForbidden = errors.New("order belongs to another client")

	// ErrOrderStatusInvalid — неподдерживаемое значение статуса заказа.
	ErrOrderStatusInvalid = errors.New("order status is invalid")
	// ErrDateInvalid — дата фильтра не разобрана.
	ErrDateInvalid = errors.New("date must be in YYYY-MM-DD format")

	// Ошибки аутентификации.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError возвращается, когда доступный остаток товара меньше
// запрошенного количества. Несёт данные для ответа API.
type InsufficientStockError struct {
	ProductID int64
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// EmptyFilterError возвращается листингом заказов, когда очередной фильтр
// опустошил выборку. Фильтры применяются последовательно, поэтому ошибка
// называет именно тот фильтр, после которого заказов не осталось.
type EmptyFilterError struct {
	Filter string
	Value  string
}

func (e *EmptyFilterError) Error() string {
	return fmt.Sprintf("no orders found for %s %q", e.Filter, e.Value)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsConflict проверяет, является ли ошибка конфликтом уникальности.
func IsConflict(err error) bool {
	return errors.Is(err, ErrBarcodeTaken) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrCPFTaken)
}

// IsNotFound проверяет, является ли ошибка отсутствием записи,
// включая опустошение выборки фильтром.
func IsNotFound(err error) bool {
	var empty *EmptyFilterError
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrImageNotFound) ||
		errors.As(err, &empty)
}
