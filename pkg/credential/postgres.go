package credential

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres looks users up in the "users" table through pgx.
type Postgres struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgres creates a provider over pool. key names the identity field:
// "id", "username" or "email". An empty key means "id".
func NewPostgres(pool *pgxpool.Pool, key string) *Postgres {
	if key == "" {
		key = "id"
	}
	return &Postgres{pool: pool, key: key}
}

// GetUser implements Provider.
func (p *Postgres) GetUser(ctx context.Context, identifier string) (*Record, error) {
	var (
		id                    int64
		username, email, hash string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, username, COALESCE(email, ''), password_hash FROM users WHERE username = $1 OR email = $1 LIMIT 1`,
		identifier,
	).Scan(&id, &username, &email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Record{
		Fields: map[string]string{
			"id":       strconv.FormatInt(id, 10),
			"username": username,
			"email":    email,
		},
		PasswordHash: hash,
	}, nil
}

// Key implements Provider.
func (p *Postgres) Key() string {
	return p.key
}

// HasSecret implements Provider.
func (p *Postgres) HasSecret(ctx context.Context, identifier string) (bool, error) {
	var has bool
	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE(totp_secret, '') <> '' FROM users WHERE username = $1 OR email = $1 LIMIT 1`,
		identifier,
	).Scan(&has)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return has, err
}

var _ Provider = (*Postgres)(nil)
