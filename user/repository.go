package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/billbatista/acasinha-trips/database"
	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Register(ctx context.Context, u *User) error {
	query := `INSERT INTO users (id, handle, username, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Handle, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrHandleExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func (r *repository) GetByHandle(ctx context.Context, handle string) (*User, error) {
	query := `SELECT id, handle, username, password_hash, created_at FROM users WHERE handle = $1`
	return r.scanOne(ctx, query, handle)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, handle, username, password_hash, created_at FROM users WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *repository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Handle,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches handles starting with prefix. LIKE wildcards in prefix are
// matched literally.
func (r *repository) Search(ctx context.Context, prefix string, limit int) ([]User, error) {
	query := `SELECT id, handle, username, created_at FROM users
              WHERE handle ILIKE $1 || '%' ESCAPE '\'
              ORDER BY handle
              LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, likeEscaper.Replace(prefix), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Handle, &u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
