package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yamdb/apiserver/types"
)

const userColumns = `id, username, email, first_name, last_name, bio, role,
	is_active, is_staff, is_superuser, password_hash, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Bio,
		&user.Role,
		&user.IsActive,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id DESC OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Taken reports which of username and email already belong to a user.
func (r *UserRepository) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	const query = `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE username = $1),
			EXISTS (SELECT 1 FROM users WHERE email = $2)`
	err = r.db.QueryRowContext(ctx, query, username, email).Scan(&usernameTaken, &emailTaken)
	return usernameTaken, emailTaken, err
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	return r.CreateWith(ctx, user, nil)
}

// CreateWith inserts user and runs after inside the same transaction.
// The insert is rolled back when after returns an error.
func (r *UserRepository) CreateWith(ctx context.Context, user types.User, after func(ctx context.Context, user types.User) error) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO users (username, email, first_name, last_name, bio, role,
				is_active, is_staff, is_superuser, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			query,
			user.Username,
			user.Email,
			user.FirstName,
			user.LastName,
			user.Bio,
			user.Role,
			user.IsActive,
			user.IsStaff,
			user.IsSuperuser,
			user.PasswordHash,
			user.CreatedAt,
			user.UpdatedAt,
		).Scan(&user.ID); err != nil {
			return translate(err)
		}
		if after != nil {
			return after(ctx, user)
		}
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			first_name = $3,
			last_name = $4,
			bio = $5,
			role = $6,
			is_active = $7,
			password_hash = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Bio,
		user.Role,
		user.IsActive,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, translate(err)
	}
	if err := expectAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}
