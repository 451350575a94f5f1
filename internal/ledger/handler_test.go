package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

func newTestRouter(svc *Service, ownerID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithOwner(req.Context(), ownerID)))
		})
	})
	NewHandler(svc, slog.Default()).RegisterRoutes(r)
	return r
}

func TestRecordPurchaseEndpoint(t *testing.T) {
	repo := newMemoryLedger()
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)
	router := newTestRouter(testService(repo), ownerID)

	body := `{"productId":"` + product.ID.String() + `","quantity":7,"costPrice":2}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Purchase    Purchase `json:"purchase"`
		NewQuantity int64    `json:"newQuantity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 10, resp.NewQuantity)
	require.Equal(t, 14.0, resp.Purchase.TotalCost)
}

func TestRecordSaleEndpointInsufficientStock(t *testing.T) {
	repo := newMemoryLedger()
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)
	router := newTestRouter(testService(repo), ownerID)

	body := `{"productId":"` + product.ID.String() + `","quantity":5}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body)))

	// A rejected sale is a bad request; the body still carries the numbers
	// the client needs to correct it.
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Title  string            `json:"title"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Insufficient Stock", problem.Title)
	require.Equal(t, "3", problem.Fields["available"])
	require.Equal(t, "5", problem.Fields["requested"])
}

func TestRecordSaleEndpointValidation(t *testing.T) {
	repo := newMemoryLedger()
	ownerID := uuid.New()
	router := newTestRouter(testService(repo), ownerID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"quantity":0}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSalesEndpointFilters(t *testing.T) {
	repo := newMemoryLedger()
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 100)
	svc := testService(repo)
	router := newTestRouter(svc, ownerID)

	for i := 0; i < 3; i++ {
		body := `{"productId":"` + product.ID.String() + `","quantity":1}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales?filter=today", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page SalePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Sales, 3)
	require.EqualValues(t, 3, page.Totals.Quantity)
	require.Equal(t, 15.0, page.Totals.TotalRevenue)
}

func TestExpenseEndpoints(t *testing.T) {
	repo := newMemoryLedger()
	ownerID := uuid.New()
	router := newTestRouter(testService(repo), ownerID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"title":"Rent","amount":500}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary ExpenseSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 500.0, summary.TotalAmount)
	require.EqualValues(t, 1, summary.Count)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/expenses/"+created.ID.String(), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/expenses/"+created.ID.String(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPurchasesEndpointRejectsBadDates(t *testing.T) {
	repo := newMemoryLedger()
	router := newTestRouter(testService(repo), uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/purchases?startDate=2024-13-99", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
