package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{db: store.DB()}
}

func (r *userRepository) Create(user domain.User) (domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *userRepository) Get(id int64) (domain.User, error) {
	return r.scanOne(`
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (r *userRepository) GetByEmail(email string) (domain.User, error) {
	return r.scanOne(`
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)
}

func (r *userRepository) Update(user domain.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $1,
		    password_hash = $2
		WHERE id = $3
	`, user.Email, user.PasswordHash, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) scanOne(query string, arg any) (domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

var _ domain.UserRepository = (*userRepository)(nil)
