// internal/handlers/stock_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
	"github.com/farmapos/farmapos-be/internal/handlers"
	"github.com/farmapos/farmapos-be/test/mocks"
)

func newStockHandler(t *testing.T) (*handlers.StockHandler, *mocks.MockStockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockStockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handlers.NewStockHandler(service, logger), service
}

func newStockRouter(h *handlers.StockHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stock/{productId}", h.GetLevel)
	mux.HandleFunc("GET /api/v1/stock/{productId}/movements", h.GetMovements)
	mux.HandleFunc("POST /api/v1/stock/{productId}/adjust", h.Adjust)
	mux.HandleFunc("GET /api/v1/stock/{productId}/reconcile", h.Reconcile)
	return mux
}

func TestStockHandler_GetLevel(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		handler, service := newStockHandler(t)
		productID := uuid.New()

		service.EXPECT().GetLevel(gomock.Any(), productID).
			Return(&domain.StockLevel{ProductID: productID, Quantity: 12, MinQuantity: 5}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/"+productID.String(), nil)
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var level domain.StockLevel
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&level))
		assert.Equal(t, 12, level.Quantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		handler, service := newStockHandler(t)
		productID := uuid.New()

		service.EXPECT().GetLevel(gomock.Any(), productID).
			Return(nil, &domain.NotFoundError{Resource: "stock level", ID: productID.String()})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/"+productID.String(), nil)
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		handler, _ := newStockHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStockHandler_GetMovements(t *testing.T) {
	handler, service := newStockHandler(t)
	productID := uuid.New()

	service.EXPECT().GetMovements(gomock.Any(), productID, 2, 10).
		Return(&ports.StockView{
			Level:      &domain.StockLevel{ProductID: productID, Quantity: 8},
			Movements:  []domain.StockMovement{{ProductID: productID, Kind: domain.MovementOut}},
			Page:       2,
			PageSize:   10,
			TotalCount: 11,
		}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/stock/"+productID.String()+"/movements?page=2&limit=10", nil)
	rec := httptest.NewRecorder()

	newStockRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStockHandler_Adjust(t *testing.T) {
	actorID := uuid.New()

	t.Run("adjusted", func(t *testing.T) {
		handler, service := newStockHandler(t)
		productID := uuid.New()

		service.EXPECT().
			Adjust(gomock.Any(), productID, -3, domain.MovementLoss, "water damage", actorID).
			Return(&domain.StockLevel{ProductID: productID, Quantity: 7}, nil)

		body, _ := json.Marshal(handlers.AdjustStockRequest{
			Delta:  -3,
			Kind:   "LOSS",
			Reason: "water damage",
		})
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/stock/"+productID.String()+"/adjust", bytes.NewBuffer(body))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing actor header", func(t *testing.T) {
		handler, _ := newStockHandler(t)
		productID := uuid.New()

		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/stock/"+productID.String()+"/adjust",
			bytes.NewBufferString(`{"delta":1,"reason":"recount"}`))
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation maps to 422", func(t *testing.T) {
		handler, service := newStockHandler(t)
		productID := uuid.New()

		service.EXPECT().
			Adjust(gomock.Any(), productID, 0, domain.MovementKind(""), "", actorID).
			Return(nil, &domain.ValidationError{Violations: []string{
				"adjustment delta cannot be zero",
				"adjustment reason is required",
			}})

		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/stock/"+productID.String()+"/adjust", bytes.NewBufferString(`{}`))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("floor violation maps to 409", func(t *testing.T) {
		handler, service := newStockHandler(t)
		productID := uuid.New()

		service.EXPECT().
			Adjust(gomock.Any(), productID, -100, domain.MovementAdjustment, "recount", actorID).
			Return(nil, &domain.InsufficientStockError{ProductID: productID, Available: 4, Requested: 100})

		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/stock/"+productID.String()+"/adjust",
			bytes.NewBufferString(`{"delta":-100,"kind":"ADJUSTMENT","reason":"recount"}`))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newStockRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestStockHandler_Reconcile(t *testing.T) {
	handler, service := newStockHandler(t)
	productID := uuid.New()

	service.EXPECT().Reconcile(gomock.Any(), productID).
		Return(&ports.ReconcileReport{
			ProductID:     productID,
			Stored:        37,
			FromMovements: 37,
			Drift:         0,
		}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/stock/"+productID.String()+"/reconcile", nil)
	rec := httptest.NewRecorder()

	newStockRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var report ports.ReconcileReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Zero(t, report.Drift)
}
