package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/storage/memory"
)

type fixture struct {
	reconciler Reconciler
	products   domain.ProductRepository
	clients    domain.ClientRepository
	orders     domain.OrderRepository
	history    domain.HistoryRepository
	outbox     interface {
		domain.OutboxRepository
		AllPending() []domain.OutboxMessage
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := memory.NewProductRepository()
	clients := memory.NewClientRepository()
	orders := memory.NewOrderRepository(products)
	history := memory.NewHistoryRepository()
	outbox := memory.NewOutboxRepository()

	return &fixture{
		reconciler: NewReconcilerWithoutMetrics(orders, products, clients, history, outbox, nil),
		products:   products,
		clients:    clients,
		orders:     orders,
		history:    history,
		outbox:     outbox,
	}
}

func (f *fixture) seedClient(t *testing.T, email, cpf string) domain.Client {
	t.Helper()
	client, err := f.clients.Create(domain.Client{
		Name:     "Maria",
		LastName: "Silva",
		Email:    email,
		CPF:      cpf,
		Phone:    "11987654321",
		UserID:   1,
	})
	require.NoError(t, err)
	return client
}

func (f *fixture) seedProduct(t *testing.T, barcode, section string, priceMinor int64, stock int32) domain.Product {
	t.Helper()
	product, err := f.products.Create(domain.Product{
		Description: "товар " + barcode,
		PriceMinor:  priceMinor,
		Barcode:     barcode,
		Section:     section,
		Stock:       stock,
	})
	require.NoError(t, err)
	return product
}

func TestCreateReservesStockAndSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 4990, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 3}},
	}, 0)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.EqualValues(t, 4990, order.Items[0].PriceMinor)
	require.EqualValues(t, 3*4990, order.TotalMinor())

	got, err := f.products.Get(product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, got.Stock)

	// Последующее изменение цены товара не влияет на снимок в заказе.
	got.PriceMinor = 9990
	require.NoError(t, f.products.Update(got))

	stored, err := f.reconciler.Get(order.ID, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4990, stored.Items[0].PriceMinor)

	events, err := f.reconciler.History(order.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "created", events[0].Type)

	pending := f.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, "order.created", pending[0].EventType)
}

func TestCreateValidatesBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	cases := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{"missing client", CreateInput{Items: []ItemInput{{ProductID: product.ID, Qty: 1}}}, domain.ErrClientRequired},
		{"unknown client", CreateInput{ClientID: 999, Items: []ItemInput{{ProductID: product.ID, Qty: 1}}}, domain.ErrClientNotFound},
		{"no items", CreateInput{ClientID: client.ID}, domain.ErrItemsRequired},
		{"zero qty", CreateInput{ClientID: client.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 0}}}, domain.ErrItemQtyInvalid},
		{"missing product id", CreateInput{ClientID: client.ID, Items: []ItemInput{{Qty: 1}}}, domain.ErrItemProductRequired},
		{"unknown product", CreateInput{ClientID: client.ID, Items: []ItemInput{{ProductID: 999, Qty: 1}}}, domain.ErrProductNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.reconciler.Create(tc.input, 0)
			require.ErrorIs(t, err, tc.want)
		})
	}

	// Ни одна из неудач не должна была тронуть остаток.
	got, err := f.products.Get(product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, got.Stock)
}

func TestCreateInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	plenty := f.seedProduct(t, "1", "camisetas", 1000, 10)
	scarce := f.seedProduct(t, "2", "calcas", 2000, 2)

	_, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items: []ItemInput{
			{ProductID: plenty.ID, Qty: 5},
			{ProductID: scarce.ID, Qty: 3},
		},
	}, 0)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, scarce.ID, insufficient.ProductID)
	require.EqualValues(t, 3, insufficient.Requested)
	require.EqualValues(t, 2, insufficient.Available)

	gotPlenty, _ := f.products.Get(plenty.ID)
	require.EqualValues(t, 10, gotPlenty.Stock)

	orders, err := f.reconciler.List(Filter{}, 0)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestOwnershipChecks(t *testing.T) {
	f := newFixture(t)
	owner := f.seedClient(t, "maria@example.com", "12345678901")
	other := f.seedClient(t, "joana@example.com", "98765432100")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: owner.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 1}},
	}, owner.ID)
	require.NoError(t, err)

	_, err = f.reconciler.Get(order.ID, other.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)

	_, err = f.reconciler.Update(order.ID, UpdateInput{Items: []ItemInput{{ProductID: product.ID, Qty: 2}}}, other.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)

	err = f.reconciler.Delete(order.ID, other.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)

	// Создание заказа на чужого клиента тоже запрещено.
	_, err = f.reconciler.Create(CreateInput{
		ClientID: owner.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 1}},
	}, other.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)
}

func TestUpdateReplacesItemsResnapshottingPrices(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	kept := f.seedProduct(t, "1", "camisetas", 1000, 10)
	added := f.seedProduct(t, "2", "calcas", 2000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: kept.ID, Qty: 4}},
	}, 0)
	require.NoError(t, err)

	// Цена оставшегося товара меняется между созданием и заменой.
	product, _ := f.products.Get(kept.ID)
	product.PriceMinor = 5000
	require.NoError(t, f.products.Update(product))

	updated, err := f.reconciler.Update(order.ID, UpdateInput{
		Items: []ItemInput{
			{ProductID: kept.ID, Qty: 1},
			{ProductID: added.ID, Qty: 2},
		},
	}, 0)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)

	prices := map[int64]int64{}
	for _, item := range updated.Items {
		prices[item.ProductID] = item.PriceMinor
	}
	// Замена позиций — новые резервации: цена снимается заново и для
	// товара, остававшегося в заказе.
	require.EqualValues(t, 5000, prices[kept.ID])
	require.EqualValues(t, 2000, prices[added.ID])

	gotKept, _ := f.products.Get(kept.ID)
	gotAdded, _ := f.products.Get(added.ID)
	require.EqualValues(t, 9, gotKept.Stock)
	require.EqualValues(t, 8, gotAdded.Stock)
}

func TestUpdateReplaceItemsMissingProduct(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 2}},
	}, 0)
	require.NoError(t, err)

	// Товар удалён между созданием заказа и заменой позиций: замена
	// отклоняется как NotFound даже для товара, уже бывшего в заказе.
	require.NoError(t, f.products.Delete(product.ID))

	_, err = f.reconciler.Update(order.ID, UpdateInput{
		Items: []ItemInput{{ProductID: product.ID, Qty: 3}},
	}, 0)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpdateReplaceItemsInsufficientKeepsOrderIntact(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 5)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 2}},
	}, 0)
	require.NoError(t, err)

	_, err = f.reconciler.Update(order.ID, UpdateInput{
		Items: []ItemInput{{ProductID: product.ID, Qty: 9}},
	}, 0)
	require.True(t, domain.IsInsufficientStock(err))

	unchanged, err := f.reconciler.Get(order.ID, 0)
	require.NoError(t, err)
	require.Len(t, unchanged.Items, 1)
	require.EqualValues(t, 2, unchanged.Items[0].Qty)

	got, _ := f.products.Get(product.ID)
	require.EqualValues(t, 3, got.Stock)
}

func TestUpdateDeliveredConsumesOrderKeepingDebit(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 4}},
	}, 0)
	require.NoError(t, err)

	delivered := domain.OrderStatusDelivered
	updated, err := f.reconciler.Update(order.ID, UpdateInput{Status: &delivered}, 0)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, updated.Status)

	_, err = f.reconciler.Get(order.ID, 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	got, _ := f.products.Get(product.ID)
	require.EqualValues(t, 6, got.Stock)

	// Журнал переживает удаление записи заказа.
	events, err := f.reconciler.History(order.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "delivered", events[1].Type)
}

func TestUpdateCanceledRestoresStock(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 4}},
	}, 0)
	require.NoError(t, err)

	canceled := domain.OrderStatusCanceled
	_, err = f.reconciler.Update(order.ID, UpdateInput{Status: &canceled}, 0)
	require.NoError(t, err)

	got, _ := f.products.Get(product.ID)
	require.EqualValues(t, 10, got.Stock)

	_, err = f.reconciler.Get(order.ID, 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 1}},
	}, 0)
	require.NoError(t, err)

	bogus := domain.OrderStatus("SHIPPED")
	_, err = f.reconciler.Update(order.ID, UpdateInput{Status: &bogus}, 0)
	require.ErrorIs(t, err, domain.ErrOrderStatusInvalid)
}

func TestDeleteRestoresStockAndSecondDeleteFails(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 4}},
	}, 0)
	require.NoError(t, err)

	require.NoError(t, f.reconciler.Delete(order.ID, 0))

	got, _ := f.products.Get(product.ID)
	require.EqualValues(t, 10, got.Stock)

	err = f.reconciler.Delete(order.ID, 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListIncrementalFilters(t *testing.T) {
	f := newFixture(t)
	maria := f.seedClient(t, "maria@example.com", "12345678901")
	joana := f.seedClient(t, "joana@example.com", "98765432100")
	shirt := f.seedProduct(t, "1", "camisetas", 1000, 100)
	pants := f.seedProduct(t, "2", "calcas", 2000, 100)

	first, err := f.reconciler.Create(CreateInput{ClientID: maria.ID, Items: []ItemInput{{ProductID: shirt.ID, Qty: 1}}}, 0)
	require.NoError(t, err)
	_, err = f.reconciler.Create(CreateInput{ClientID: maria.ID, Items: []ItemInput{{ProductID: pants.ID, Qty: 2}}}, 0)
	require.NoError(t, err)

	// Фильтр по клиенту.
	byClient, err := f.reconciler.List(Filter{ClientID: maria.ID}, 0)
	require.NoError(t, err)
	require.Len(t, byClient, 2)

	_, err = f.reconciler.List(Filter{ClientID: joana.ID}, 0)
	var empty *domain.EmptyFilterError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "client_id", empty.Filter)

	// Фильтр по секции.
	bySection, err := f.reconciler.List(Filter{Section: "camisetas"}, 0)
	require.NoError(t, err)
	require.Len(t, bySection, 1)
	require.Equal(t, first.ID, bySection[0].ID)

	_, err = f.reconciler.List(Filter{Section: "sapatos"}, 0)
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "section", empty.Filter)

	// Фильтры применяются последовательно: клиент нашёлся, секция опустошила.
	_, err = f.reconciler.List(Filter{ClientID: maria.ID, Section: "sapatos"}, 0)
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "section", empty.Filter)

	// Фильтр по id заказа.
	byID, err := f.reconciler.List(Filter{OrderID: first.ID}, 0)
	require.NoError(t, err)
	require.Len(t, byID, 1)

	_, err = f.reconciler.List(Filter{OrderID: 999}, 0)
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "id", empty.Filter)

	// Недопустимый статус — ошибка валидации, а не пустая выборка.
	_, err = f.reconciler.List(Filter{Status: "SHIPPED"}, 0)
	require.ErrorIs(t, err, domain.ErrOrderStatusInvalid)

	// Пагинация.
	page, err := f.reconciler.List(Filter{Page: 2, Limit: 1}, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestListPeriodFilter(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 100)

	order, err := f.reconciler.Create(CreateInput{ClientID: client.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 1}}}, 0)
	require.NoError(t, err)

	from := order.CreatedAt.Add(-time.Hour)
	to := order.CreatedAt.Add(time.Hour)
	inRange, err := f.reconciler.List(Filter{From: &from, To: &to}, 0)
	require.NoError(t, err)
	require.Len(t, inRange, 1)

	pastFrom := order.CreatedAt.Add(-2 * time.Hour)
	pastTo := order.CreatedAt.Add(-time.Hour)
	_, err = f.reconciler.List(Filter{From: &pastFrom, To: &pastTo}, 0)
	var empty *domain.EmptyFilterError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "period", empty.Filter)
}

func TestListForClientScopesToOwnOrders(t *testing.T) {
	f := newFixture(t)
	maria := f.seedClient(t, "maria@example.com", "12345678901")
	joana := f.seedClient(t, "joana@example.com", "98765432100")
	product := f.seedProduct(t, "1", "camisetas", 1000, 100)

	_, err := f.reconciler.Create(CreateInput{ClientID: maria.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 1}}}, 0)
	require.NoError(t, err)
	_, err = f.reconciler.Create(CreateInput{ClientID: joana.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 1}}}, 0)
	require.NoError(t, err)

	own, err := f.reconciler.List(Filter{}, maria.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, maria.ID, own[0].ClientID)

	_, err = f.reconciler.List(Filter{ClientID: joana.ID}, maria.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)
}

func TestReleaseClientOrdersRestoresAllStock(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "maria@example.com", "12345678901")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	_, err := f.reconciler.Create(CreateInput{ClientID: client.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 3}}}, 0)
	require.NoError(t, err)
	_, err = f.reconciler.Create(CreateInput{ClientID: client.ID, Items: []ItemInput{{ProductID: product.ID, Qty: 2}}}, 0)
	require.NoError(t, err)

	released, err := f.reconciler.ReleaseClientOrders(client.ID)
	require.NoError(t, err)
	require.Equal(t, 2, released)

	got, _ := f.products.Get(product.ID)
	require.EqualValues(t, 10, got.Stock)

	orders, err := f.orders.ListByClient(client.ID)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestHistoryUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.reconciler.History(42, 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestHistoryOwnershipCheck(t *testing.T) {
	f := newFixture(t)
	maria := f.seedClient(t, "maria@example.com", "12345678901")
	joana := f.seedClient(t, "joana@example.com", "98765432100")
	product := f.seedProduct(t, "1", "camisetas", 1000, 10)

	order, err := f.reconciler.Create(CreateInput{
		ClientID: maria.ID,
		Items:    []ItemInput{{ProductID: product.ID, Qty: 2}},
	}, 0)
	require.NoError(t, err)

	// Чужой журнал недоступен, свой и staff-доступ работают.
	_, err = f.reconciler.History(order.ID, joana.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)

	events, err := f.reconciler.History(order.ID, maria.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Проверка владельца переживает поглощение записи заказа.
	canceled := domain.OrderStatusCanceled
	_, err = f.reconciler.Update(order.ID, UpdateInput{Status: &canceled}, maria.ID)
	require.NoError(t, err)

	_, err = f.reconciler.History(order.ID, joana.ID)
	require.ErrorIs(t, err, domain.ErrOrderForbidden)

	events, err = f.reconciler.History(order.ID, maria.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}
