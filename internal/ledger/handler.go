package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/shared"
)

// Handler exposes ledger endpoints.
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

// RegisterRoutes mounts ledger endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Post("/", h.recordPurchase)
		r.Get("/", h.listPurchases)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.recordSale)
		r.Get("/", h.listSales)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", h.recordExpense)
		r.Get("/", h.listExpenses)
		r.Get("/summary", h.expenseSummary)
		r.Delete("/{expenseID}", h.deleteExpense)
	})
}

type recordPurchaseRequest struct {
	ProductID string  `json:"productId" validate:"required,uuid4"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	CostPrice float64 `json:"costPrice" validate:"required,gt=0"`
	Supplier  string  `json:"supplier" validate:"max=160"`
	Reference string  `json:"reference" validate:"max=120"`
	Date      string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var req recordPurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "productId must be a UUID")
		return
	}

	result, err := h.svc.RecordPurchase(r.Context(), PurchaseInput{
		OwnerID:   shared.OwnerFromContext(r.Context()),
		ProductID: productID,
		Quantity:  req.Quantity,
		CostPrice: req.CostPrice,
		Supplier:  req.Supplier,
		Reference: req.Reference,
		Date:      parseDate(req.Date),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type recordSaleRequest struct {
	ProductID    string   `json:"productId" validate:"required,uuid4"`
	Quantity     int64    `json:"quantity" validate:"required,gt=0"`
	SellingPrice *float64 `json:"sellingPrice" validate:"omitempty,gte=0"`
	Customer     string   `json:"customer" validate:"max=160"`
	Reference    string   `json:"reference" validate:"max=120"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	var req recordSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "productId must be a UUID")
		return
	}

	result, err := h.svc.RecordSale(r.Context(), SaleInput{
		OwnerID:      shared.OwnerFromContext(r.Context()),
		ProductID:    productID,
		Quantity:     req.Quantity,
		SellingPrice: req.SellingPrice,
		Customer:     req.Customer,
		Reference:    req.Reference,
		Date:         parseDate(req.Date),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type recordExpenseRequest struct {
	Title      string  `json:"title" validate:"required,max=160"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	CategoryID string  `json:"categoryId" validate:"omitempty,uuid4"`
	Note       string  `json:"note" validate:"max=2000"`
	Date       string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req recordExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemFields(w, http.StatusBadRequest, "Validation Failed", validationFields(err))
		return
	}
	var categoryID uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "categoryId must be a UUID")
			return
		}
		categoryID = parsed
	}

	expense, err := h.svc.RecordExpense(r.Context(), ExpenseInput{
		OwnerID:    shared.OwnerFromContext(r.Context()),
		Title:      req.Title,
		Amount:     req.Amount,
		CategoryID: categoryID,
		Note:       req.Note,
		Date:       parseDate(req.Date),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page, err := h.svc.ListPurchases(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page, err := h.svc.ListSales(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) expenseSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := h.listFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	summary, err := h.svc.ExpenseSummary(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := uuid.Parse(chi.URLParam(r, "expenseID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expense id must be a UUID")
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), shared.OwnerFromContext(r.Context()), expenseID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listFilter parses the shared query surface of the three listings:
// filter=today|yesterday|last7days|custom, startDate/endDate for custom,
// product, page and limit.
func (h *Handler) listFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{OwnerID: shared.OwnerFromContext(r.Context())}

	if raw := q.Get("product"); raw != "" {
		productID, err := uuid.Parse(raw)
		if err != nil {
			return ListFilter{}, errors.New("product must be a UUID")
		}
		filter.ProductID = productID
	}

	var start, end time.Time
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return ListFilter{}, errors.New("startDate must be YYYY-MM-DD")
		}
		start = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return ListFilter{}, errors.New("endDate must be YYYY-MM-DD")
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return ListFilter{}, errors.New("endDate must not precede startDate")
	}
	filter.Window = ResolvePreset(q.Get("filter"), start, end, time.Now())

	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	return filter, nil
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.JSON(w, http.StatusBadRequest, httpx.ProblemDetail{
			Title:  "Insufficient Stock",
			Status: http.StatusBadRequest,
			Detail: stockErr.Error(),
			Fields: map[string]string{
				"requested": strconv.FormatInt(stockErr.Requested, 10),
				"available": strconv.FormatInt(stockErr.Available, 10),
			},
		})
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrExpenseNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Reference", err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
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
