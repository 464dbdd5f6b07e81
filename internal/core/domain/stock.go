// internal/core/domain/stock.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind classifies a stock movement
type MovementKind string

// Movement kinds
const (
	MovementIn         MovementKind = "IN"
	MovementOut        MovementKind = "OUT"
	MovementAdjustment MovementKind = "ADJUSTMENT"
	MovementLoss       MovementKind = "LOSS"
	MovementExpiry     MovementKind = "EXPIRY"
)

// StockLevel is the denormalized on-hand counter for one product. It is
// mutated exclusively through the ledger, inside the same transaction as the
// movement row that explains the change, and must always equal the sum of the
// product's historical movements.
type StockLevel struct {
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	MinQuantity int       `json:"min_quantity"`
	MaxQuantity int       `json:"max_quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BelowMinimum reports whether the level sits at or under its threshold.
func (s *StockLevel) BelowMinimum() bool {
	return s.Quantity <= s.MinQuantity
}

// StockMovement is one append-only ledger entry. Movements are never updated
// or deleted. Quantity is the positive magnitude; PriorQuantity and
// NewQuantity pin the committed on-hand value on both sides of the change so
// the ledger reconciles without interpreting kinds.
type StockMovement struct {
	ID            uuid.UUID    `json:"id"`
	ProductID     uuid.UUID    `json:"product_id"`
	Kind          MovementKind `json:"kind"`
	Quantity      int          `json:"quantity"`
	PriorQuantity int          `json:"prior_quantity"`
	NewQuantity   int          `json:"new_quantity"`
	Reason        string       `json:"reason"`
	ActorID       uuid.UUID    `json:"actor_id"`
	SaleID        *uuid.UUID   `json:"sale_id,omitempty"`
	SaleItemID    *uuid.UUID   `json:"sale_item_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Delta returns the signed effect of the movement on on-hand stock.
func (m *StockMovement) Delta() int {
	return m.NewQuantity - m.PriorQuantity
}
