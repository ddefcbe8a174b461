package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in the "sessions" table created by the
// pkg/db migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `id, token, user_id, data, registered, ip, user_agent, created_at, last_active_at, expires_at`

// Create implements Store.
func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	if s.Token == "" {
		return ErrInvalidToken
	}
	data, err := encodeValues(s.Values)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Token, s.UserID, data, s.Registered, s.IP, s.UserAgent, s.CreatedAt, s.LastActiveAt, s.ExpiresAt,
	)
	return err
}

// Get implements Store.
func (p *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	var (
		s    Session
		data []byte
	)
	err := p.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token).Scan(
		&s.ID, &s.Token, &s.UserID, &data, &s.Registered, &s.IP, &s.UserAgent, &s.CreatedAt, &s.LastActiveAt, &s.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Values = make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.Values); err != nil {
			return nil, errors.Join(ErrDecode, err)
		}
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return &s, nil
}

// Update implements Store.
func (p *PostgresStore) Update(ctx context.Context, s *Session) error {
	data, err := encodeValues(s.Values)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE sessions SET token = $2, user_id = $3, data = $4, registered = $5, ip = $6, user_agent = $7,
		 last_active_at = $8, expires_at = $9 WHERE id = $1`,
		s.ID, s.Token, s.UserID, data, s.Registered, s.IP, s.UserAgent, s.LastActiveAt, s.ExpiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Store.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByUserID implements Store.
func (p *PostgresStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// Touch implements Store.
func (p *PostgresStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE sessions SET last_active_at = $2 WHERE id = $1`, id, lastActiveAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired implements Store.
func (p *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func encodeValues(v map[string]any) ([]byte, error) {
	if v == nil {
		v = map[string]any{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return data, nil
}

var _ Store = (*PostgresStore)(nil)
