package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/auth"
	"github.com/stocklane/stocklane/jobs"
)

// stubAuthRepo never resolves a token, so every authenticated route rejects.
type stubAuthRepo struct{}

func (stubAuthRepo) InsertOwner(_ context.Context, o auth.Owner) (auth.Owner, error) {
	return o, nil
}

func (stubAuthRepo) InsertToken(_ context.Context, t auth.Token) (auth.Token, error) {
	return t, nil
}

func (stubAuthRepo) GetToken(_ context.Context, _ uuid.UUID) (auth.Token, error) {
	return auth.Token{}, auth.ErrInvalidToken
}

func (stubAuthRepo) TouchToken(_ context.Context, _ uuid.UUID, _ time.Time) error { return nil }

func (stubAuthRepo) ListTokens(_ context.Context, _ uuid.UUID) ([]auth.Token, error) {
	return nil, nil
}

func (stubAuthRepo) DeleteToken(_ context.Context, _, _ uuid.UUID) error { return nil }

func TestRouterProtectsEverythingButHealthz(t *testing.T) {
	logger := slog.Default()
	router := NewRouter(RouterParams{
		Logger:      logger,
		AuthService: auth.NewService(stubAuthRepo{}),
		JobHandler:  jobs.NewHandler(nil, logger),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer "+uuid.NewString()+".bogus")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
