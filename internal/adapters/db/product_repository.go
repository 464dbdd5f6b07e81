// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "product")),
	}
}

const productColumns = `
	id, sku, name, laboratory, sale_price, regulated, requires_cold,
	active, created_at, updated_at`

// FindByID retrieves one active product.
func (r *productRepository) FindByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND active`

	product := &domain.Product{}
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&product.ID, &product.SKU, &product.Name, &product.Laboratory,
		&product.SalePrice, &product.Regulated, &product.RequiresCold,
		&product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, &domain.InfrastructureError{Op: "find product", Err: err}
	}
	return product, nil
}

// FindByIDs retrieves the active products for the given ids, keyed by id.
func (r *productRepository) FindByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	result := make(map[uuid.UUID]*domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) AND active`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "find products", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID, &product.SKU, &product.Name, &product.Laboratory,
			&product.SalePrice, &product.Regulated, &product.RequiresCold,
			&product.Active, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, &domain.InfrastructureError{Op: "scan product", Err: err}
		}
		result[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.InfrastructureError{Op: "iterate products", Err: err}
	}

	return result, nil
}
