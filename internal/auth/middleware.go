package auth

import (
	"net/http"
	"strings"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Middleware authenticates the Authorization bearer header and stores the
// resolved owner in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		credential, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || credential == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		ownerID, err := s.Verify(r.Context(), credential)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithOwner(r.Context(), ownerID)))
	})
}
