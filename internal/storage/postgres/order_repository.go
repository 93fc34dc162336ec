package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create вставляет заказ и списывает остатки в одной транзакции.
// Условное обновление остатка отклоняет транзакцию целиком при нехватке,
// так что частичных списаний и висячих заказов не остаётся.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	debits := make(map[int64]int32)
	for productID, qty := range order.StockDeltas() {
		debits[productID] = -qty
	}
	if err = adjustStockTx(ctx, tx, debits); err != nil {
		return domain.Order{}, err
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (client_id, status, created_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, order.ClientID, string(order.Status), order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	items, err := insertItemsTx(ctx, tx, order.ID, order.Items)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit create order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) Get(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var order domain.Order
	var status string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.ClientID, &status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) ListAll() ([]domain.Order, error) {
	return r.list(`
		SELECT id, client_id, status, created_at
		FROM orders
		ORDER BY id
	`)
}

func (r *orderRepository) ListByClient(clientID int64) ([]domain.Order, error) {
	return r.list(`
		SELECT id, client_id, status, created_at
		FROM orders
		WHERE client_id = $1
		ORDER BY id
	`, clientID)
}

// ReplaceItems целиком заменяет позиции заказа. Возврат по старым позициям
// и списание по новым применяются одним набором дельт: двухшаговое
// применение оставило бы частичное состояние при нехватке.
func (r *orderRepository) ReplaceItems(orderID int64, items []domain.OrderItem) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var order domain.Order
	var status string
	// FOR UPDATE сериализует конкурентные замены позиций одного заказа.
	err = tx.QueryRowContext(ctx, `
		SELECT id, client_id, status, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.ClientID, &status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("lock order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	oldItems, err := loadItemsTx(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	deltas := (&domain.Order{Items: oldItems}).StockDeltas()
	for productID, qty := range (&domain.Order{Items: items}).StockDeltas() {
		deltas[productID] -= qty
	}
	if err = adjustStockTx(ctx, tx, deltas); err != nil {
		return domain.Order{}, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return domain.Order{}, fmt.Errorf("delete old order items: %w", err)
	}

	inserted, err := insertItemsTx(ctx, tx, orderID, items)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = inserted

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit replace items: %w", err)
	}

	return order, nil
}

// Delete удаляет заказ; при restoreStock возвращает остатки по позициям
// в той же транзакции.
func (r *orderRepository) Delete(id int64, restoreStock bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var orderID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("lock order: %w", err)
	}

	if restoreStock {
		items, loadErr := loadItemsTx(ctx, tx, id)
		if loadErr != nil {
			err = loadErr
			return err
		}
		if err = adjustStockTx(ctx, tx, (&domain.Order{Items: items}).StockDeltas()); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order: %w", err)
	}

	return nil
}

func (r *orderRepository) list(query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(&order.ID, &order.ClientID, &status, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, qty, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func loadItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, qty, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID int64, items []domain.OrderItem) ([]domain.OrderItem, error) {
	inserted := make([]domain.OrderItem, len(items))
	copy(inserted, items)
	for i := range inserted {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, price_minor)
			VALUES ($1,$2,$3,$4)
			RETURNING id
		`, orderID, inserted[i].ProductID, inserted[i].Qty, inserted[i].PriceMinor).Scan(&inserted[i].ID); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}
	return inserted, nil
}

func scanItems(rows *sql.Rows) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Qty, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
