package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const argon2ID = "argon2id"

// Params are argon2id cost parameters.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the OWASP baseline for argon2id.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes with argon2id and verifies argon2id and bcrypt hashes.
// It is safe for concurrent use.
type Hasher struct {
	params Params
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithParams overrides the argon2id cost parameters. Zero fields keep defaults.
func WithParams(p Params) Option {
	return func(h *Hasher) {
		if p.Memory > 0 {
			h.params.Memory = p.Memory
		}
		if p.Time > 0 {
			h.params.Time = p.Time
		}
		if p.Parallelism > 0 {
			h.params.Parallelism = p.Parallelism
		}
		if p.SaltLength > 0 {
			h.params.SaltLength = p.SaltLength
		}
		if p.KeyLength > 0 {
			h.params.KeyLength = p.KeyLength
		}
	}
}

// NewHasher creates a Hasher with DefaultParams.
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{params: DefaultParams}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the argon2id PHC encoding of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded.
// A mismatch is not an error; an unparseable hash is.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	switch {
	case isBcrypt(encoded):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, errors.Join(ErrMalformedHash, err)
		}
		return true, nil

	case strings.HasPrefix(encoded, "$"+argon2ID+"$"):
		p, salt, key, err := decodeArgon2(encoded)
		if err != nil {
			return false, err
		}
		got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, uint32(len(key)))
		return subtle.ConstantTimeCompare(got, key) == 1, nil

	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsRehash reports whether encoded was produced by another scheme or with
// weaker parameters than the Hasher's.
func (h *Hasher) NeedsRehash(encoded string) bool {
	if !strings.HasPrefix(encoded, "$"+argon2ID+"$") {
		return true
	}
	p, _, key, err := decodeArgon2(encoded)
	if err != nil {
		return true
	}
	return p.Memory < h.params.Memory ||
		p.Time < h.params.Time ||
		p.Parallelism < h.params.Parallelism ||
		uint32(len(key)) != h.params.KeyLength
}

func isBcrypt(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

// decodeArgon2 parses "$argon2id$v=19$m=65536,t=1,p=4$salt$key".
func decodeArgon2(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := decodeB64(parts[4])
	if err != nil {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errors.Join(ErrMalformedHash, err)
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
