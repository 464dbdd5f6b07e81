// internal/core/ports/product_repository.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// ProductRepository reads the catalog. The catalog is administered elsewhere;
// fulfillment only needs prices and regulatory flags.
type ProductRepository interface {
	FindByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	// FindByIDs returns the active products for the given ids, keyed by id.
	// Missing ids are simply absent from the map.
	FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
}
