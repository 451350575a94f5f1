package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts auth persistence for the service.
type RepositoryPort interface {
	InsertOwner(ctx context.Context, o Owner) (Owner, error)
	InsertToken(ctx context.Context, t Token) (Token, error)
	GetToken(ctx context.Context, tokenID uuid.UUID) (Token, error)
	TouchToken(ctx context.Context, tokenID uuid.UUID, at time.Time) error
	ListTokens(ctx context.Context, ownerID uuid.UUID) ([]Token, error)
	DeleteToken(ctx context.Context, ownerID, tokenID uuid.UUID) error
}

// Repository persists owners and API tokens in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertOwner stores a new tenant.
func (r *Repository) InsertOwner(ctx context.Context, o Owner) (Owner, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO owners (id, name, email, created_at)
VALUES ($1,$2,$3,NOW()) RETURNING created_at`, o.ID, o.Name, o.Email).Scan(&o.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Owner{}, ErrEmailTaken
		}
		return Owner{}, err
	}
	return o, nil
}

// InsertToken stores a new API token.
func (r *Repository) InsertToken(ctx context.Context, t Token) (Token, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO api_tokens (id, owner_id, label, secret_hash, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING created_at`, t.ID, t.OwnerID, t.Label, t.SecretHash).Scan(&t.CreatedAt)
	if err != nil {
		return Token{}, err
	}
	return t, nil
}

// GetToken loads one token by id.
func (r *Repository) GetToken(ctx context.Context, tokenID uuid.UUID) (Token, error) {
	var t Token
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, label, secret_hash, created_at, last_used_at
FROM api_tokens WHERE id=$1`, tokenID).
		Scan(&t.ID, &t.OwnerID, &t.Label, &t.SecretHash, &t.CreatedAt, &t.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrInvalidToken
	}
	return t, err
}

// TouchToken records the last successful use.
func (r *Repository) TouchToken(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_tokens SET last_used_at=$2 WHERE id=$1`, tokenID, at)
	return err
}

// ListTokens returns the owner's tokens, newest first.
func (r *Repository) ListTokens(ctx context.Context, ownerID uuid.UUID) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, label, secret_hash, created_at, last_used_at
FROM api_tokens WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []Token{}
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Label, &t.SecretHash, &t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteToken revokes a token owned by the caller.
func (r *Repository) DeleteToken(ctx context.Context, ownerID, tokenID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE id=$1 AND owner_id=$2`, tokenID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidToken
	}
	return nil
}
