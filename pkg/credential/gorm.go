package credential

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// User is the GORM model backing the GORM provider.
// It maps to the same "users" table the pkg/db migrations create.
type User struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string `gorm:"uniqueIndex;size:191;not null"`
	Email        string `gorm:"uniqueIndex;size:191"`
	PasswordHash string `gorm:"not null"`
	TOTPSecret   string `gorm:"column:totp_secret"`
	ID           uint   `gorm:"primaryKey"`
}

// TableName implements gorm's tabler interface.
func (User) TableName() string { return "users" }

// GORM looks users up by username or email through gorm.
type GORM struct {
	db  *gorm.DB
	key string
}

// GORMOption configures the GORM provider.
type GORMOption func(*GORM)

// WithIdentityKey sets the identity field stored in the session: "id",
// "username" or "email". Default: "id".
func WithIdentityKey(key string) GORMOption {
	return func(g *GORM) {
		if key != "" {
			g.key = key
		}
	}
}

// NewGORM creates a provider over db.
func NewGORM(db *gorm.DB, opts ...GORMOption) *GORM {
	g := &GORM{db: db, key: "id"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetUser implements Provider.
func (g *GORM) GetUser(ctx context.Context, identifier string) (*Record, error) {
	u, err := g.find(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &Record{
		Fields: map[string]string{
			"id":       strconv.FormatUint(uint64(u.ID), 10),
			"username": u.Username,
			"email":    u.Email,
		},
		PasswordHash: u.PasswordHash,
	}, nil
}

// Key implements Provider.
func (g *GORM) Key() string {
	return g.key
}

// HasSecret implements Provider.
func (g *GORM) HasSecret(ctx context.Context, identifier string) (bool, error) {
	u, err := g.find(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.TOTPSecret != "", nil
}

func (g *GORM) find(ctx context.Context, identifier string) (*User, error) {
	if identifier == "" {
		return nil, ErrNotFound
	}

	var u User
	err := g.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var _ Provider = (*GORM)(nil)
