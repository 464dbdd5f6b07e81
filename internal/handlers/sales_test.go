// internal/handlers/sales_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
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

func newSaleHandler(t *testing.T) (*handlers.SaleHandler, *mocks.MockSaleService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockSaleService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handlers.NewSaleHandler(service, logger), service
}

// newRouter mounts the handler the way the server does so path values resolve.
func newRouter(h *handlers.SaleHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sales", h.CreateSale)
	mux.HandleFunc("GET /api/v1/sales", h.ListSales)
	mux.HandleFunc("GET /api/v1/sales/{id}", h.GetSale)
	mux.HandleFunc("POST /api/v1/sales/{id}/cancel", h.CancelSale)
	mux.HandleFunc("POST /api/v1/sales/{id}/payment", h.FinalizePayment)
	mux.HandleFunc("POST /api/v1/sales/{id}/prescription", h.ArchivePrescription)
	return mux
}

func createSaleBody(t *testing.T, productID uuid.UUID) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(handlers.CreateSaleRequest{
		PaymentMethod: "PIX",
		Items: []handlers.CreateSaleItemRequest{
			{ProductID: productID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestSaleHandler_CreateSale(t *testing.T) {
	actorID := uuid.New()
	productID := uuid.New()

	t.Run("created", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		service.EXPECT().
			CreateSale(gomock.Any(), gomock.Any(), actorID).
			DoAndReturn(func(_ context.Context, input ports.CreateSaleInput, _ uuid.UUID) (*domain.Sale, error) {
				assert.Equal(t, domain.PaymentPix, input.PaymentMethod)
				require.Len(t, input.Items, 1)
				assert.Equal(t, productID, input.Items[0].ProductID)
				return &domain.Sale{ID: saleID, Status: domain.StatusPending}, nil
			})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", createSaleBody(t, productID))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var sale domain.Sale
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&sale))
		assert.Equal(t, saleID, sale.ID)
	})

	t.Run("missing actor header", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", createSaleBody(t, productID))
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "X-Actor-ID")
	})

	t.Run("malformed body", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString("{not json"))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no items", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales",
			bytes.NewBufferString(`{"payment_method":"CASH","items":[]}`))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure maps to 422 with violations", func(t *testing.T) {
		handler, service := newSaleHandler(t)

		service.EXPECT().
			CreateSale(gomock.Any(), gomock.Any(), actorID).
			Return(nil, &domain.ValidationError{Violations: []string{
				"prescription number is required",
				"patient name is required (at least 2 characters)",
			}})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", createSaleBody(t, productID))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body struct {
			Error      string   `json:"error"`
			Violations []string `json:"violations"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Len(t, body.Violations, 2)
	})

	t.Run("insufficient stock maps to 409 with quantities", func(t *testing.T) {
		handler, service := newSaleHandler(t)

		service.EXPECT().
			CreateSale(gomock.Any(), gomock.Any(), actorID).
			Return(nil, &domain.InsufficientStockError{
				ProductID: productID,
				Available: 1,
				Requested: 2,
			})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", createSaleBody(t, productID))
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)

		var body struct {
			ProductID uuid.UUID `json:"product_id"`
			Available int       `json:"available"`
			Requested int       `json:"requested"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, productID, body.ProductID)
		assert.Equal(t, 1, body.Available)
		assert.Equal(t, 2, body.Requested)
	})
}

func TestSaleHandler_GetSale(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		service.EXPECT().GetSale(gomock.Any(), saleID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusPaid}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+saleID.String(), nil)
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		service.EXPECT().GetSale(gomock.Any(), saleID).
			Return(nil, &domain.NotFoundError{Resource: "sale", ID: saleID.String()})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+saleID.String(), nil)
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSaleHandler_ListSales(t *testing.T) {
	t.Run("filters forwarded", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		sellerID := uuid.New()

		service.EXPECT().
			ListSales(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params ports.SaleListParams) (*ports.SaleListResult, error) {
				assert.Equal(t, 2, params.Page)
				assert.Equal(t, 25, params.PageSize)
				require.NotNil(t, params.SellerID)
				assert.Equal(t, sellerID, *params.SellerID)
				assert.Equal(t, domain.StatusPaid, params.Status)
				assert.True(t, params.RegulatedOnly)
				return &ports.SaleListResult{Page: 2, PageSize: 25}, nil
			})

		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/sales?page=2&limit=25&seller_id="+sellerID.String()+"&status=PAID&regulated=true", nil)
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sales?from=yesterday", nil)
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSaleHandler_CancelSale(t *testing.T) {
	actorID := uuid.New()

	t.Run("cancelled", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		service.EXPECT().CancelSale(gomock.Any(), saleID, actorID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusCancelled}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/cancel", nil)
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("terminal state maps to 409", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		service.EXPECT().CancelSale(gomock.Any(), saleID, actorID).
			Return(nil, &domain.StateConflictError{
				Resource: "sale",
				ID:       saleID.String(),
				Current:  "PAID",
				Attempt:  "transition to CANCELLED",
			})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/cancel", nil)
		req.Header.Set("X-Actor-ID", actorID.String())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSaleHandler_FinalizePayment(t *testing.T) {
	handler, service := newSaleHandler(t)
	saleID := uuid.New()

	service.EXPECT().FinalizePayment(gomock.Any(), saleID).
		Return(&domain.Sale{ID: saleID, Status: domain.StatusPaid}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/payment", nil)
	rec := httptest.NewRecorder()

	newRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var sale domain.Sale
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sale))
	assert.Equal(t, domain.StatusPaid, sale.Status)
}

func TestSaleHandler_ArchivePrescription(t *testing.T) {
	t.Run("with document", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		require.NoError(t, writer.WriteField("prescription_number", "CRM-99/SP"))
		part, err := writer.CreateFormFile("document", "scan.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		service.EXPECT().
			ArchivePrescription(gomock.Any(), saleID, "CRM-99/SP", []byte("%PDF-1.4 test")).
			Return(&domain.Sale{ID: saleID, PrescriptionArchived: true}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/prescription", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("without document", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		require.NoError(t, writer.WriteField("prescription_number", "CRM-99/SP"))
		require.NoError(t, writer.Close())

		service.EXPECT().
			ArchivePrescription(gomock.Any(), saleID, "CRM-99/SP", gomock.Nil()).
			Return(&domain.Sale{ID: saleID, PrescriptionArchived: true}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/prescription", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("already archived maps to 409", func(t *testing.T) {
		handler, service := newSaleHandler(t)
		saleID := uuid.New()

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		require.NoError(t, writer.Close())

		service.EXPECT().
			ArchivePrescription(gomock.Any(), saleID, "", gomock.Nil()).
			Return(nil, &domain.StateConflictError{
				Resource: "sale",
				ID:       saleID.String(),
				Current:  "prescription already archived",
				Attempt:  "archive prescription",
			})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/prescription", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		newRouter(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
