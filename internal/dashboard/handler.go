package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the dashboard endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.TodaySnapshot(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.logger.Error("dashboard summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
