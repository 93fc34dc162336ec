package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository создаёт PostgreSQL-реализацию ClientRepository.
func NewClientRepository(store *Store) domain.ClientRepository {
	return &clientRepository{db: store.DB()}
}

func (r *clientRepository) Create(client domain.Client) (domain.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO clients (name, last_name, email, cpf, phone, user_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		client.Name, client.LastName, client.Email,
		client.CPF, client.Phone, client.UserID,
	).Scan(&client.ID)
	if err != nil {
		if conflictErr := classifyClientConflict(err); conflictErr != nil {
			return domain.Client{}, conflictErr
		}
		return domain.Client{}, fmt.Errorf("insert client: %w", err)
	}

	return client, nil
}

func (r *clientRepository) Get(id int64) (domain.Client, error) {
	return r.scanOne(`
		SELECT id, name, last_name, email, cpf, phone, user_id
		FROM clients
		WHERE id = $1
	`, id)
}

func (r *clientRepository) GetByEmail(email string) (domain.Client, error) {
	return r.scanOne(`
		SELECT id, name, last_name, email, cpf, phone, user_id
		FROM clients
		WHERE LOWER(email) = LOWER($1)
	`, email)
}

func (r *clientRepository) GetByCPF(cpf string) (domain.Client, error) {
	return r.scanOne(`
		SELECT id, name, last_name, email, cpf, phone, user_id
		FROM clients
		WHERE cpf = $1
	`, cpf)
}

func (r *clientRepository) List(filter domain.ClientFilter) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", len(args)))
	}

	query := `
		SELECT id, name, last_name, email, cpf, phone, user_id
		FROM clients
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.Limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ID, &client.Name, &client.LastName,
			&client.Email, &client.CPF, &client.Phone, &client.UserID,
		); err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rows: %w", err)
	}

	return clients, nil
}

func (r *clientRepository) Update(client domain.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET name = $1,
		    last_name = $2,
		    email = $3,
		    cpf = $4,
		    phone = $5
		WHERE id = $6
	`,
		client.Name, client.LastName, client.Email,
		client.CPF, client.Phone, client.ID,
	)
	if err != nil {
		if conflictErr := classifyClientConflict(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("update client: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *clientRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *clientRepository) scanOne(query string, arg any) (domain.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var client domain.Client
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&client.ID, &client.Name, &client.LastName,
		&client.Email, &client.CPF, &client.Phone, &client.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("select client: %w", err)
	}
	return client, nil
}

// classifyClientConflict различает нарушение уникальности email и CPF
// по имени ограничения.
func classifyClientConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "cpf") {
		return domain.ErrCPFTaken
	}
	return domain.ErrEmailTaken
}

var _ domain.ClientRepository = (*clientRepository)(nil)
