package report

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes the report endpoint.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the report endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/sales", h.salesReport)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var start, end time.Time
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "startDate must be YYYY-MM-DD")
			return
		}
		start = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "endDate must be YYYY-MM-DD")
			return
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "endDate must not precede startDate")
		return
	}

	rep, err := h.svc.Generate(r.Context(), shared.OwnerFromContext(r.Context()), start, end)
	if err != nil {
		h.logger.Error("sales report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}
