// internal/core/ports/sale_service.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// CreateSaleInput is the shape-validated request for one sale.
type CreateSaleInput struct {
	CustomerID    *uuid.UUID
	PaymentMethod domain.PaymentMethod
	Items         []CreateSaleItemInput
	Notes         string

	// Regulatory capture, required only when an item is regulated.
	PrescriptionNumber string
	PrescriptionDate   *time.Time
	PatientName        string
	PatientDocument    string
	PatientDocType     domain.DocumentType
	PatientAddress     string
	BuyerName          string
	BuyerDocument      string
	BuyerDocType       domain.DocumentType
	AssistedSale       bool
	Justification      string
}

// CreateSaleItemInput is one requested line. UnitPrice nil means "use the
// catalog price"; DiscountPercent nil means zero.
type CreateSaleItemInput struct {
	ProductID       uuid.UUID
	Quantity        int
	UnitPrice       *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// SaleService is the transaction engine owning the sale lifecycle.
type SaleService interface {
	CreateSale(ctx context.Context, input CreateSaleInput, actorID uuid.UUID) (*domain.Sale, error)
	CancelSale(ctx context.Context, saleID, actorID uuid.UUID) (*domain.Sale, error)
	FinalizePayment(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error)
	ArchivePrescription(ctx context.Context, saleID uuid.UUID, prescriptionNumber string, document []byte) (*domain.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context, params SaleListParams) (*SaleListResult, error)
}
