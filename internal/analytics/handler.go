package analytics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes analytics endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts analytics endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/sales-per-day", h.salesPerDay)
		r.Get("/monthly-profit", h.monthlyProfit)
	})
}

func (h *Handler) salesPerDay(w http.ResponseWriter, r *http.Request) {
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

	points, err := h.svc.SalesPerDay(r.Context(), shared.OwnerFromContext(r.Context()), start, end)
	if err != nil {
		h.logger.Error("sales per day failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"salesPerDay": points})
}

func (h *Handler) monthlyProfit(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))

	series, err := h.svc.MonthlyProfit(r.Context(), shared.OwnerFromContext(r.Context()), months)
	if err != nil {
		h.logger.Error("monthly profit failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"monthlyProfit": series})
}
