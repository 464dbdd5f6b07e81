// internal/core/domain/product.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The catalog itself is administered elsewhere;
// the fulfillment engine only reads it for pricing and compliance flags.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Laboratory   string          `json:"laboratory,omitempty"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Regulated    bool            `json:"regulated"`
	RequiresCold bool            `json:"requires_cold,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
