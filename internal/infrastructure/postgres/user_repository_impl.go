package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplytics/shoplytics/internal/apperrors"
	"github.com/shoplytics/shoplytics/internal/domain/entity"
	"github.com/shoplytics/shoplytics/internal/domain/repository"

	"errors"
)

// UserRepository is the Postgres-backed alternative to the JSON file store,
// selected with STORE_DRIVER=postgres. It returns the same apperrors kinds
// so the credential service cannot tell the backends apart.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(u *entity.UserRecord) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, lower(trim($2)), $3)
		RETURNING email, created_at
	`, u.Username, u.Email, u.PasswordHash)

	if err := row.Scan(&u.Email, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique_violation: constraint name tells us which field collided
			if pgErr.ConstraintName == "users_email_key" {
				return apperrors.NewValidationErrorMsg("email", u.Email,
					fmt.Sprintf("Email '%s' already exists.", u.Email))
			}
			return apperrors.NewValidationErrorMsg("username", u.Username,
				fmt.Sprintf("Username '%s' already exists.", u.Username))
		}
		return apperrors.NewDatabaseError("Failed to insert the user record.", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*entity.UserRecord, error) {
	ctx := context.Background()
	u := &entity.UserRecord{}

	row := r.pool.QueryRow(ctx, `
		SELECT username, email, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	if err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUsernameNotFoundError(username)
		}
		return nil, apperrors.NewDatabaseError("Failed to query the user record.", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(email string) (*entity.UserRecord, error) {
	ctx := context.Background()
	u := &entity.UserRecord{}

	row := r.pool.QueryRow(ctx, `
		SELECT username, email, password_hash, created_at
		FROM users
		WHERE email = lower(trim($1))
	`, email)

	if err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUserNotFoundError(email)
		}
		return nil, apperrors.NewDatabaseError("Failed to query the user record.", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsUsername(username string) (bool, error) {
	ctx := context.Background()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, apperrors.NewDatabaseError("Failed to check username existence.", err)
	}
	return exists, nil
}

func (r *UserRepository) ExistsEmail(email string) (bool, error) {
	ctx := context.Background()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = lower(trim($1)))`, email).Scan(&exists)
	if err != nil {
		return false, apperrors.NewDatabaseError("Failed to check email existence.", err)
	}
	return exists, nil
}

func (r *UserRepository) UpdatePassword(username, newHash string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1
		WHERE username = $2
	`, newHash, username)
	if err != nil {
		return apperrors.NewDatabaseError("Failed to update the password hash.", err)
	}
	if res.RowsAffected() == 0 {
		return apperrors.NewUsernameNotFoundError(username)
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
