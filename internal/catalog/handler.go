package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes catalog endpoints.
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

// RegisterRoutes mounts catalog endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/options", h.listProductOptions)
		r.Get("/{productID}", h.getProduct)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.createCategory)
		r.Get("/", h.listCategories)
		r.Patch("/{categoryID}", h.updateCategory)
		r.Delete("/{categoryID}", h.deleteCategory)
	})
}

type createProductRequest struct {
	Name         string  `json:"name" validate:"required,max=160"`
	SKU          string  `json:"sku" validate:"required,max=64"`
	Supplier     string  `json:"supplier" validate:"max=160"`
	CategoryID   string  `json:"categoryId" validate:"required,uuid4"`
	CostPrice    float64 `json:"costPrice" validate:"gte=0"`
	SellingPrice float64 `json:"sellingPrice" validate:"gt=0"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	ReOrderLevel int64   `json:"reOrderLevel" validate:"gte=0"`
	Description  string  `json:"description" validate:"max=2000"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "categoryId must be a UUID")
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), CreateProductInput{
		OwnerID:      shared.OwnerFromContext(r.Context()),
		Name:         req.Name,
		SKU:          req.SKU,
		Supplier:     req.Supplier,
		CategoryID:   categoryID,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		Quantity:     req.Quantity,
		ReOrderLevel: req.ReOrderLevel,
		Description:  req.Description,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product.View())
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be a UUID")
		return
	}
	view, err := h.svc.GetProduct(r.Context(), shared.OwnerFromContext(r.Context()), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{
		OwnerID: shared.OwnerFromContext(r.Context()),
		Search:  q.Get("search"),
		Stock:   q.Get("stock"),
	}
	if raw := q.Get("category"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category must be a UUID")
			return
		}
		filter.CategoryID = categoryID
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.svc.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listProductOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.ListProductOptions(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": options})
}

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	category, err := h.svc.CreateCategory(r.Context(), CreateCategoryInput{
		OwnerID:     shared.OwnerFromContext(r.Context()),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

type updateCategoryRequest struct {
	Name        string  `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category id must be a UUID")
		return
	}
	var req updateCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	category, err := h.svc.UpdateCategory(r.Context(), UpdateCategoryInput{
		OwnerID:     shared.OwnerFromContext(r.Context()),
		ID:          categoryID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category id must be a UUID")
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), shared.OwnerFromContext(r.Context()), categoryID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCategoryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateSKU), errors.Is(err, ErrDuplicateName), errors.Is(err, ErrCategoryInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrSellingBelowCost), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("catalog request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}
