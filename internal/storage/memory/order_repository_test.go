package memory

import (
	"errors"
	"testing"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

func seedProduct(t *testing.T, products domain.ProductRepository, barcode string, stock int32) domain.Product {
	t.Helper()
	product, err := products.Create(domain.Product{
		Description: "товар " + barcode,
		PriceMinor:  1000,
		Barcode:     barcode,
		Section:     "секция",
		Stock:       stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestOrderRepositoryCreateDebitsStock(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	product := seedProduct(t, products, "1", 10)

	order, err := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: product.ID, Qty: 4, PriceMinor: 1000}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.ID == 0 || order.Items[0].ID == 0 {
		t.Fatalf("идентификаторы не присвоены: %+v", order)
	}

	got, _ := products.Get(product.ID)
	if got.Stock != 6 {
		t.Fatalf("ожидался остаток 6, получили %d", got.Stock)
	}
}

func TestOrderRepositoryCreateInsufficientLeavesNothing(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	plenty := seedProduct(t, products, "1", 10)
	scarce := seedProduct(t, products, "2", 1)

	_, err := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: plenty.ID, Qty: 2, PriceMinor: 1000},
			{ProductID: scarce.ID, Qty: 3, PriceMinor: 1000},
		},
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("ожидался InsufficientStockError, получили %v", err)
	}

	got, _ := products.Get(plenty.ID)
	if got.Stock != 10 {
		t.Fatalf("частичное списание: остаток %d", got.Stock)
	}
	orders, _ := repo.ListAll()
	if len(orders) != 0 {
		t.Fatalf("заказ не должен был сохраниться: %d", len(orders))
	}
}

func TestOrderRepositoryCreateAggregatesDuplicateLines(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	product := seedProduct(t, products, "1", 5)

	// Две позиции одного товара суммарно превышают остаток.
	_, err := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: product.ID, Qty: 3, PriceMinor: 1000},
			{ProductID: product.ID, Qty: 3, PriceMinor: 1000},
		},
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("ожидалась нехватка по суммарному количеству, получили %v", err)
	}
}

func TestOrderRepositoryReplaceItemsNetDelta(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	first := seedProduct(t, products, "1", 10)
	second := seedProduct(t, products, "2", 10)

	order, err := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: first.ID, Qty: 4, PriceMinor: 1000}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.ReplaceItems(order.ID, []domain.OrderItem{
		{ProductID: first.ID, Qty: 1, PriceMinor: 1000},
		{ProductID: second.ID, Qty: 2, PriceMinor: 2000},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("ожидалось 2 позиции, получили %d", len(updated.Items))
	}

	gotFirst, _ := products.Get(first.ID)
	gotSecond, _ := products.Get(second.ID)
	if gotFirst.Stock != 9 || gotSecond.Stock != 8 {
		t.Fatalf("неверные остатки после замены: %d/%d", gotFirst.Stock, gotSecond.Stock)
	}
}

func TestOrderRepositoryReplaceItemsInsufficientKeepsOrder(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	product := seedProduct(t, products, "1", 5)

	order, _ := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: product.ID, Qty: 2, PriceMinor: 1000}},
	})

	// Замена требует 8 при доступных 3 + возврат 2 = 5.
	_, err := repo.ReplaceItems(order.ID, []domain.OrderItem{{ProductID: product.ID, Qty: 8, PriceMinor: 1000}})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("ожидалась нехватка, получили %v", err)
	}

	got, _ := repo.Get(order.ID)
	if len(got.Items) != 1 || got.Items[0].Qty != 2 {
		t.Fatalf("заказ изменился: %+v", got.Items)
	}
	gotProduct, _ := products.Get(product.ID)
	if gotProduct.Stock != 3 {
		t.Fatalf("остаток изменился: %d", gotProduct.Stock)
	}
}

func TestOrderRepositoryDeleteRestoresStock(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	product := seedProduct(t, products, "1", 10)

	order, _ := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: product.ID, Qty: 4, PriceMinor: 1000}},
	})

	if err := repo.Delete(order.ID, true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := products.Get(product.ID)
	if got.Stock != 10 {
		t.Fatalf("остаток не восстановлен: %d", got.Stock)
	}

	if err := repo.Delete(order.ID, true); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("повторное удаление: ожидался ErrOrderNotFound, получили %v", err)
	}
}

func TestOrderRepositoryDeleteWithoutRestore(t *testing.T) {
	products := NewProductRepository()
	repo := NewOrderRepository(products)

	product := seedProduct(t, products, "1", 10)

	order, _ := repo.Create(domain.Order{
		ClientID: 1,
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{{ProductID: product.ID, Qty: 4, PriceMinor: 1000}},
	})

	if err := repo.Delete(order.ID, false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := products.Get(product.ID)
	if got.Stock != 6 {
		t.Fatalf("остаток должен остаться списанным: %d", got.Stock)
	}
}
