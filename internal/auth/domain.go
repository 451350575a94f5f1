package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Owner is one tenant. Every catalog and ledger row is scoped to an owner.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Token is an API credential. Only the bcrypt hash of the secret is stored;
// the composed "id.secret" value is shown once at issue time.
type Token struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"-"`
	Label      string     `json:"label"`
	SecretHash []byte     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

var (
	// ErrEmailTaken indicates a duplicate registration email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken covers malformed, unknown and mismatched credentials.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidInput marks validation failures.
	ErrInvalidInput = errors.New("auth: invalid input")
)
