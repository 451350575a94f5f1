package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	owners map[string]Owner
	tokens map[uuid.UUID]Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{owners: map[string]Owner{}, tokens: map[uuid.UUID]Token{}}
}

func (m *memoryRepo) InsertOwner(_ context.Context, o Owner) (Owner, error) {
	if _, ok := m.owners[o.Email]; ok {
		return Owner{}, ErrEmailTaken
	}
	o.CreatedAt = time.Now().UTC()
	m.owners[o.Email] = o
	return o, nil
}

func (m *memoryRepo) InsertToken(_ context.Context, t Token) (Token, error) {
	t.CreatedAt = time.Now().UTC()
	m.tokens[t.ID] = t
	return t, nil
}

func (m *memoryRepo) GetToken(_ context.Context, tokenID uuid.UUID) (Token, error) {
	t, ok := m.tokens[tokenID]
	if !ok {
		return Token{}, ErrInvalidToken
	}
	return t, nil
}

func (m *memoryRepo) TouchToken(_ context.Context, tokenID uuid.UUID, at time.Time) error {
	t, ok := m.tokens[tokenID]
	if ok {
		t.LastUsedAt = &at
		m.tokens[tokenID] = t
	}
	return nil
}

func (m *memoryRepo) ListTokens(_ context.Context, ownerID uuid.UUID) ([]Token, error) {
	tokens := []Token{}
	for _, t := range m.tokens {
		if t.OwnerID == ownerID {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

func (m *memoryRepo) DeleteToken(_ context.Context, ownerID, tokenID uuid.UUID) error {
	t, ok := m.tokens[tokenID]
	if !ok || t.OwnerID != ownerID {
		return ErrInvalidToken
	}
	delete(m.tokens, tokenID)
	return nil
}

func fastService(repo RepositoryPort) *Service {
	svc := NewService(repo)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	repo := newMemoryRepo()
	svc := fastService(repo)

	result, err := svc.Register(context.Background(), "Ada", "ADA@example.com ")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", result.Owner.Email)
	require.NotEmpty(t, result.Token)

	ownerID, err := svc.Verify(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, result.Owner.ID, ownerID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := fastService(repo)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Eve", "ada@example.com")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyRejectsBadCredentials(t *testing.T) {
	repo := newMemoryRepo()
	svc := fastService(repo)

	result, err := svc.Register(context.Background(), "Ada", "ada@example.com")
	require.NoError(t, err)

	for _, credential := range []string{
		"",
		"not-a-token",
		uuid.NewString(),
		uuid.NewString() + ".wrongsecret",
		result.Token + "x",
	} {
		_, err := svc.Verify(context.Background(), credential)
		require.ErrorIs(t, err, ErrInvalidToken, "credential %q", credential)
	}
}

func TestRevokedTokenStopsVerifying(t *testing.T) {
	repo := newMemoryRepo()
	svc := fastService(repo)

	result, err := svc.Register(context.Background(), "Ada", "ada@example.com")
	require.NoError(t, err)

	tokens, err := svc.ListTokens(context.Background(), result.Owner.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	require.NoError(t, svc.RevokeToken(context.Background(), result.Owner.ID, tokens[0].ID))

	_, err = svc.Verify(context.Background(), result.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
