// internal/handlers/stock.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// StockHandler handles stock ledger HTTP requests
type StockHandler struct {
	service ports.StockService
	logger  *slog.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(service ports.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "stock")),
	}
}

// GetLevel handles GET /api/v1/stock/{productId}
func (h *StockHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID format")
		return
	}

	level, err := h.service.GetLevel(ctx, productID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, level)
}

// GetMovements handles GET /api/v1/stock/{productId}/movements
func (h *StockHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID format")
		return
	}

	page, pageSize := 1, 50
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			pageSize = v
		}
	}

	view, err := h.service.GetMovements(ctx, productID, page, pageSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list movements",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason"`
}

// Adjust handles POST /api/v1/stock/{productId}/adjust
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID format")
		return
	}

	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level, err := h.service.Adjust(ctx, productID, req.Delta, domain.MovementKind(req.Kind), req.Reason, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to adjust stock",
			slog.String("product_id", productID.String()),
			slog.Int("delta", req.Delta),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID.String()),
		slog.Int("delta", req.Delta),
		slog.Int("quantity", level.Quantity))

	respondJSON(w, http.StatusOK, level)
}

// Reconcile handles GET /api/v1/stock/{productId}/reconcile
func (h *StockHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(r.PathValue("productId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product ID format")
		return
	}

	report, err := h.service.Reconcile(ctx, productID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to reconcile stock",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
