// Package auth issues and verifies the bearer tokens that scope every
// request to one owner.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const secretBytes = 24

// Service manages owners and API tokens.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
	cost int
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now, cost: bcrypt.DefaultCost}
}

// RegisterResult pairs the new owner with their first credential.
type RegisterResult struct {
	Owner Owner  `json:"owner"`
	Token string `json:"token"`
}

// Register creates a new owner and mints their first token. The plaintext
// token is returned exactly once.
func (s *Service) Register(ctx context.Context, name, email string) (RegisterResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return RegisterResult{}, ErrInvalidInput
	}

	owner, err := s.repo.InsertOwner(ctx, Owner{ID: uuid.New(), Name: name, Email: email})
	if err != nil {
		return RegisterResult{}, err
	}
	token, _, err := s.IssueToken(ctx, owner.ID, "default")
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Owner: owner, Token: token}, nil
}

// IssueToken mints a credential of the form "<tokenID>.<secret>".
func (s *Service) IssueToken(ctx context.Context, ownerID uuid.UUID, label string) (string, Token, error) {
	if ownerID == uuid.Nil {
		return "", Token{}, ErrInvalidInput
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = "api"
	}

	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", Token{}, fmt.Errorf("generate token secret: %w", err)
	}
	secret := hex.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", Token{}, fmt.Errorf("hash token secret: %w", err)
	}

	token, err := s.repo.InsertToken(ctx, Token{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Label:      label,
		SecretHash: hash,
	})
	if err != nil {
		return "", Token{}, err
	}
	return fmt.Sprintf("%s.%s", token.ID, secret), token, nil
}

// Verify resolves a presented credential to its owner.
func (s *Service) Verify(ctx context.Context, credential string) (uuid.UUID, error) {
	tokenID, secret, ok := strings.Cut(strings.TrimSpace(credential), ".")
	if !ok || secret == "" {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(tokenID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	token, err := s.repo.GetToken(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if bcrypt.CompareHashAndPassword(token.SecretHash, []byte(secret)) != nil {
		return uuid.Nil, ErrInvalidToken
	}
	// Best effort; a failed touch must not fail the request.
	_ = s.repo.TouchToken(ctx, token.ID, s.now().UTC())
	return token.OwnerID, nil
}

// ListTokens returns the owner's tokens without secrets.
func (s *Service) ListTokens(ctx context.Context, ownerID uuid.UUID) ([]Token, error) {
	return s.repo.ListTokens(ctx, ownerID)
}

// RevokeToken deletes a credential.
func (s *Service) RevokeToken(ctx context.Context, ownerID, tokenID uuid.UUID) error {
	return s.repo.DeleteToken(ctx, ownerID, tokenID)
}
