// internal/core/ports/stock_service.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// StockView bundles the current level with recent movements for reads.
type StockView struct {
	Level      *domain.StockLevel     `json:"level"`
	Movements  []domain.StockMovement `json:"movements"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalCount int64                  `json:"total_count"`
}

// ReconcileReport compares the stored quantity against the movement history.
type ReconcileReport struct {
	ProductID     uuid.UUID `json:"product_id"`
	Stored        int       `json:"stored"`
	FromMovements int       `json:"from_movements"`
	Drift         int       `json:"drift"`
}

// StockService exposes ledger reads and manual corrections.
type StockService interface {
	GetLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error)
	GetMovements(ctx context.Context, productID uuid.UUID, page, pageSize int) (*StockView, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int, kind domain.MovementKind, reason string, actorID uuid.UUID) (*domain.StockLevel, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileReport, error)
}
