package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cortexa-ai/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, age, gender,
	       blood_group, email_verified, verification_code, verification_code_expiry,
	       created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, classify(err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (
			email, password_hash, first_name, last_name, age, gender,
			blood_group, email_verified, verification_code,
			verification_code_expiry, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Age,
		user.Gender,
		user.BloodGroup,
		user.EmailVerified,
		user.VerificationCode,
		user.VerificationCodeExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, classify(err)
	}
	return user, nil
}

func (r *UserRepository) SetVerificationCode(ctx context.Context, userID int64, code string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET verification_code = $1,
			verification_code_expiry = $2,
			updated_at = $3
		WHERE id = $4`
	return r.exec(ctx, query, code, expiry, time.Now(), userID)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID int64) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE,
			verification_code = NULL,
			verification_code_expiry = NULL,
			updated_at = $1
		WHERE id = $2`
	return r.exec(ctx, query, time.Now(), userID)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Age,
		&user.Gender,
		&user.BloodGroup,
		&user.EmailVerified,
		&user.VerificationCode,
		&user.VerificationCodeExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, classify(err)
	}
	return user, nil
}
