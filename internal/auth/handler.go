package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes registration and token management.
type Handler struct {
	svc      *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterPublicRoutes mounts endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.register)
}

// RegisterRoutes mounts authenticated token management endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth/tokens", func(r chi.Router) {
		r.Post("/", h.issueToken)
		r.Get("/", h.listTokens)
		r.Delete("/{tokenID}", h.revokeToken)
	})
}

type registerRequest struct {
	Name  string `json:"name" validate:"required,max=160"`
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "name and a valid email are required")
		return
	}
	result, err := h.svc.Register(r.Context(), req.Name, req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type issueTokenRequest struct {
	Label string `json:"label" validate:"max=80"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	credential, token, err := h.svc.IssueToken(r.Context(), shared.OwnerFromContext(r.Context()), req.Label)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"token": credential, "meta": token})
}

func (h *Handler) listTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.ListTokens(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (h *Handler) revokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token id must be a UUID")
		return
	}
	if err := h.svc.RevokeToken(r.Context(), shared.OwnerFromContext(r.Context()), tokenID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidToken):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "token not found")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("auth request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
