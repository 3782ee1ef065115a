package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/scamguard/internal/domain/users"
)

const mysqlErrDuplicateEntry = 1062

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Find looks a user up by subject id
func (r *UserRepository) Find(ctx context.Context, id string) (*users.User, error) {
	const q = `
SELECT id, email, name, picture, provider, created_at
FROM users
WHERE id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, id)

	var u users.User
	var email, name, picture sql.NullString
	if err := row.Scan(&u.ID, &email, &name, &picture, &u.Provider, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, err
	}
	u.Email = email.String
	u.Name = name.String
	u.Picture = picture.String
	return &u, nil
}

// Create inserts a new user row. A duplicate primary key maps to
// users.ErrAlreadyExists so callers can resolve first-sign-in races.
func (r *UserRepository) Create(ctx context.Context, u *users.User) error {
	const q = `
INSERT INTO users (id, email, name, picture, provider, created_at)
VALUES (?,?,?,?,?,?);
`
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		u.ID, nullIfEmpty(u.Email), nullIfEmpty(u.Name), nullIfEmpty(u.Picture),
		u.Provider, createdAt,
	)
	var merr *mysql.MySQLError
	if errors.As(err, &merr) && merr.Number == mysqlErrDuplicateEntry {
		return users.ErrAlreadyExists
	}
	return err
}
