// internal/core/ports/stock_ledger.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// MovementRef links a ledger entry back to what caused it. Kind is honored
// only by Adjust; reserve and release always write OUT and IN movements.
type MovementRef struct {
	Kind       domain.MovementKind
	Reason     string
	ActorID    uuid.UUID
	SaleID     *uuid.UUID
	SaleItemID *uuid.UUID
}

// StockLedger is the sole authority over per-product on-hand quantity. Every
// mutation happens through a movement row; reserve and release run inside the
// caller's transaction so a multi-item sale commits or rolls back as one.
type StockLedger interface {
	// CheckAndReserve locks the product's stock row, verifies qty is
	// available, decrements it and appends an OUT movement. Returns the
	// updated level, or a *domain.InsufficientStockError when qty exceeds
	// the on-hand quantity.
	CheckAndReserve(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int, ref MovementRef) (*domain.StockLevel, error)

	// Release credits qty back and appends an IN movement. Stock corrections
	// are accepted without an upper bound.
	Release(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int, ref MovementRef) (*domain.StockLevel, error)

	// Adjust applies a signed correction in its own transaction. The
	// post-change quantity must stay non-negative.
	Adjust(ctx context.Context, productID uuid.UUID, delta int, ref MovementRef) (*domain.StockLevel, error)

	GetLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error)
	ListMovements(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]domain.StockMovement, int64, error)

	// Reconcile recomputes the level from the movement history and reports
	// the stored aggregate alongside it. The two must always match.
	Reconcile(ctx context.Context, productID uuid.UUID) (stored int, fromMovements int, err error)

	// FindBelowMinimum lists products at or under their minimum threshold.
	FindBelowMinimum(ctx context.Context, limit int) ([]domain.StockLevel, error)
}

// StockListParams filters a movement history listing.
type StockListParams struct {
	ProductID uuid.UUID
	Kind      domain.MovementKind
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
