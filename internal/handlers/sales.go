// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// maxPrescriptionUploadBytes caps prescription document uploads.
const maxPrescriptionUploadBytes = 10 << 20

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	service ports.SaleService
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(service ports.SaleService, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sale, err := h.service.CreateSale(ctx, input, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create sale",
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sale created",
		slog.String("sale_id", sale.ID.String()),
		slog.String("net_total", sale.NetTotal.String()),
		slog.Bool("regulated", sale.HasRegulatedItem))

	respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale ID format")
		return
	}

	sale, err := h.service.GetSale(ctx, saleID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

// ListSales handles GET /api/v1/sales
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := parseSaleListParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListSales(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sales",
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CancelSale handles POST /api/v1/sales/{id}/cancel
func (h *SaleHandler) CancelSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale ID format")
		return
	}

	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sale, err := h.service.CancelSale(ctx, saleID, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to cancel sale",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sale cancelled",
		slog.String("sale_id", saleID.String()))

	respondJSON(w, http.StatusOK, sale)
}

// FinalizePayment handles POST /api/v1/sales/{id}/payment
func (h *SaleHandler) FinalizePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale ID format")
		return
	}

	sale, err := h.service.FinalizePayment(ctx, saleID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to finalize payment",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payment finalized",
		slog.String("sale_id", saleID.String()))

	respondJSON(w, http.StatusOK, sale)
}

// ArchivePrescription handles POST /api/v1/sales/{id}/prescription.
// Accepts multipart/form-data with an optional "document" file part and a
// "prescription_number" field.
func (h *SaleHandler) ArchivePrescription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale ID format")
		return
	}

	if err := r.ParseMultipartForm(maxPrescriptionUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	prescriptionNumber := r.FormValue("prescription_number")

	var document []byte
	file, _, err := r.FormFile("document")
	if err == nil {
		defer file.Close()
		document, err = io.ReadAll(io.LimitReader(file, maxPrescriptionUploadBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read document")
			return
		}
	} else if err != http.ErrMissingFile {
		respondError(w, http.StatusBadRequest, "invalid document upload")
		return
	}

	sale, err := h.service.ArchivePrescription(ctx, saleID, prescriptionNumber, document)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to archive prescription",
			slog.String("sale_id", saleID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "prescription archived",
		slog.String("sale_id", saleID.String()))

	respondJSON(w, http.StatusOK, sale)
}

// actorFromRequest resolves the acting operator. Authentication happens
// upstream; the gateway forwards the authenticated operator in X-Actor-ID.
func actorFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing X-Actor-ID header")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid X-Actor-ID header")
	}
	return actorID, nil
}

func parseSaleListParams(r *http.Request) (ports.SaleListParams, error) {
	params := ports.SaleListParams{
		Page:     1,
		PageSize: 50,
	}

	q := r.URL.Query()

	if page := q.Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			params.PageSize = l
		}
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return params, fmt.Errorf("invalid from timestamp")
		}
		params.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return params, fmt.Errorf("invalid to timestamp")
		}
		params.To = &t
	}

	if customer := q.Get("customer_id"); customer != "" {
		id, err := uuid.Parse(customer)
		if err != nil {
			return params, fmt.Errorf("invalid customer_id")
		}
		params.CustomerID = &id
	}
	if seller := q.Get("seller_id"); seller != "" {
		id, err := uuid.Parse(seller)
		if err != nil {
			return params, fmt.Errorf("invalid seller_id")
		}
		params.SellerID = &id
	}

	params.PaymentMethod = domain.PaymentMethod(q.Get("payment_method"))
	params.Status = domain.PaymentStatus(q.Get("status"))
	params.RegulatedOnly = q.Get("regulated") == "true"

	return params, nil
}

// Request DTOs

// CreateSaleRequest represents the request body for creating a sale
type CreateSaleRequest struct {
	CustomerID    *uuid.UUID              `json:"customer_id,omitempty"`
	PaymentMethod string                  `json:"payment_method"`
	Items         []CreateSaleItemRequest `json:"items"`
	Notes         string                  `json:"notes,omitempty"`

	PrescriptionNumber string     `json:"prescription_number,omitempty"`
	PrescriptionDate   *time.Time `json:"prescription_date,omitempty"`
	PatientName        string     `json:"patient_name,omitempty"`
	PatientDocument    string     `json:"patient_document,omitempty"`
	PatientDocType     string     `json:"patient_doc_type,omitempty"`
	PatientAddress     string     `json:"patient_address,omitempty"`
	BuyerName          string     `json:"buyer_name,omitempty"`
	BuyerDocument      string     `json:"buyer_document,omitempty"`
	BuyerDocType       string     `json:"buyer_doc_type,omitempty"`
	AssistedSale       bool       `json:"assisted_sale,omitempty"`
	Justification      string     `json:"justification,omitempty"`
}

// CreateSaleItemRequest is one requested sale line
type CreateSaleItemRequest struct {
	ProductID       uuid.UUID        `json:"product_id"`
	Quantity        int              `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
}

// ToInput converts the request into the service input. Business validation
// happens in the service; only structural checks live here.
func (r *CreateSaleRequest) ToInput() (ports.CreateSaleInput, error) {
	if len(r.Items) == 0 {
		return ports.CreateSaleInput{}, fmt.Errorf("items is required")
	}

	input := ports.CreateSaleInput{
		CustomerID:         r.CustomerID,
		PaymentMethod:      domain.PaymentMethod(r.PaymentMethod),
		Notes:              r.Notes,
		PrescriptionNumber: r.PrescriptionNumber,
		PrescriptionDate:   r.PrescriptionDate,
		PatientName:        r.PatientName,
		PatientDocument:    r.PatientDocument,
		PatientDocType:     domain.DocumentType(r.PatientDocType),
		PatientAddress:     r.PatientAddress,
		BuyerName:          r.BuyerName,
		BuyerDocument:      r.BuyerDocument,
		BuyerDocType:       domain.DocumentType(r.BuyerDocType),
		AssistedSale:       r.AssistedSale,
		Justification:      r.Justification,
	}

	for _, item := range r.Items {
		input.Items = append(input.Items, ports.CreateSaleItemInput{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
		})
	}

	return input, nil
}
