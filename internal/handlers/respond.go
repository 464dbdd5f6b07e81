// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain error classes onto HTTP status codes.
// Insufficient stock and lifecycle conflicts are expected business outcomes,
// not server faults.
func respondDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "validation failed",
			"violations": validationErr.Violations,
		})
		return
	}

	var notFoundErr *domain.NotFoundError
	if errors.As(err, &notFoundErr) {
		respondError(w, http.StatusNotFound, notFoundErr.Error())
		return
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	var conflictErr *domain.StateConflictError
	if errors.As(err, &conflictErr) {
		respondError(w, http.StatusConflict, conflictErr.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, "internal server error")
}
