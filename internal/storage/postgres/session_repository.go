package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository создаёт PostgreSQL-реализацию SessionRepository.
func NewSessionRepository(store *Store) domain.SessionRepository {
	return &sessionRepository{db: store.DB()}
}

func (r *sessionRepository) Create(session domain.Session) (domain.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, kind, ttl_at, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, session.Token, session.UserID, string(session.Kind), session.TTLAt, session.CreatedAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

func (r *sessionRepository) Get(token string) (domain.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var session domain.Session
	var kind string
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, kind, ttl_at, created_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&session.Token, &session.UserID, &kind, &session.TTLAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("select session: %w", err)
	}
	session.Kind = domain.SessionKind(kind)

	return session, nil
}

func (r *sessionRepository) Delete(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired удаляет просроченные сессии пачками, чтобы фоновая очистка
// не держала долгих блокировок.
func (r *sessionRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE token IN (
			SELECT token FROM sessions
			WHERE ttl_at < $1
			ORDER BY ttl_at
			LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

var _ domain.SessionRepository = (*sessionRepository)(nil)
