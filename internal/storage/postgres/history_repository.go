package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository создаёт PostgreSQL-реализацию HistoryRepository.
func NewHistoryRepository(store *Store) domain.HistoryRepository {
	return &historyRepository{db: store.DB()}
}

func (r *historyRepository) Append(event domain.HistoryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO order_history (order_id, client_id, event_type, reason, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`, event.OrderID, event.ClientID, event.Type, event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	return nil
}

func (r *historyRepository) List(orderID int64) ([]domain.HistoryEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, client_id, event_type, reason, occurred_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list history events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.HistoryEvent, 0)
	for rows.Next() {
		var event domain.HistoryEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.ClientID, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history events: %w", err)
	}

	return events, nil
}

var _ domain.HistoryRepository = (*historyRepository)(nil)
