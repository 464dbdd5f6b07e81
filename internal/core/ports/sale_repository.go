// internal/core/ports/sale_repository.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// SaleRepository persists the sale aggregate. Writes that belong to the
// create/cancel flows take the enclosing transaction so they commit together
// with the ledger movements.
type SaleRepository interface {
	SaveInTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error
	FindByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error)
	// FindByIDForUpdate locks the sale header row within tx so concurrent
	// lifecycle transitions serialize.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, saleID uuid.UUID) (*domain.Sale, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error
	UpdateStatus(ctx context.Context, sale *domain.Sale) error
	MarkPrescriptionArchived(ctx context.Context, sale *domain.Sale) error
	FindAll(ctx context.Context, params SaleListParams) ([]*domain.Sale, int64, error)
}

// SaleListParams holds the filters for listing sales. Reads never take locks.
type SaleListParams struct {
	From          *time.Time
	To            *time.Time
	CustomerID    *uuid.UUID
	SellerID      *uuid.UUID
	PaymentMethod domain.PaymentMethod
	Status        domain.PaymentStatus
	RegulatedOnly bool
	Page          int
	PageSize      int
}

// SaleListResult is one page of sales.
type SaleListResult struct {
	Sales      []*domain.Sale `json:"sales"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
	TotalPages int            `json:"total_pages"`
}
