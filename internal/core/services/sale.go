// internal/core/services/sale.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
	"github.com/farmapos/farmapos-be/internal/workers"
)

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// TaskEnqueuer enqueues background tasks. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SaleService orchestrates sale creation, cancellation and payment inside one
// atomic unit of work per sale. It is the single point deciding how errors
// classify at the boundary.
type SaleService struct {
	sales    ports.SaleRepository
	ledger   ports.StockLedger
	products ports.ProductRepository
	db       TxRunner
	storage  ports.StorageClient
	cache    ports.CacheRepository
	tasks    TaskEnqueuer
	logger   *slog.Logger

	prescriptionValidityDays int
}

// Statically assert that *SaleService implements the SaleService interface.
var _ ports.SaleService = (*SaleService)(nil)

// SaleServiceOption configures optional collaborators.
type SaleServiceOption func(*SaleService)

// WithStorage wires the prescription document archive.
func WithStorage(storage ports.StorageClient) SaleServiceOption {
	return func(s *SaleService) { s.storage = storage }
}

// WithCache wires the dashboard cache for write-path invalidation.
func WithCache(cache ports.CacheRepository) SaleServiceOption {
	return func(s *SaleService) { s.cache = cache }
}

// WithTaskEnqueuer wires the background task queue.
func WithTaskEnqueuer(tasks TaskEnqueuer) SaleServiceOption {
	return func(s *SaleService) { s.tasks = tasks }
}

// WithPrescriptionValidityDays overrides the default validity window.
func WithPrescriptionValidityDays(days int) SaleServiceOption {
	return func(s *SaleService) { s.prescriptionValidityDays = days }
}

// NewSaleService creates a new sale service
func NewSaleService(
	sales ports.SaleRepository,
	ledger ports.StockLedger,
	products ports.ProductRepository,
	db TxRunner,
	logger *slog.Logger,
	opts ...SaleServiceOption,
) *SaleService {
	s := &SaleService{
		sales:                    sales,
		ledger:                   ledger,
		products:                 products,
		db:                       db,
		logger:                   logger.With(slog.String("service", "sale")),
		prescriptionValidityDays: domain.DefaultPrescriptionValidityDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSale validates the request, prices it, applies compliance rules and
// commits the sale header, items and OUT movements in one transaction. Any
// failure on any item aborts everything; no partial sale is ever observable.
func (s *SaleService) CreateSale(ctx context.Context, input ports.CreateSaleInput, actorID uuid.UUID) (*domain.Sale, error) {
	if err := validateSaleShape(input); err != nil {
		return nil, err
	}

	catalog, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	hasRegulated := false
	for _, p := range catalog {
		if p.Regulated {
			hasRegulated = true
			break
		}
	}

	if hasRegulated {
		violations := domain.CheckCompliance(complianceInput(input), s.prescriptionValidityDays, time.Now())
		if err := domain.NewValidationError(violations); err != nil {
			return nil, err
		}
	}

	sale, err := s.buildSale(input, catalog, hasRegulated)
	if err != nil {
		return nil, err
	}
	sale.SellerID = actorID
	sale.PrepareForStorage()

	// Demand for repeated references to one product accumulates against a
	// single ledger row, and products are reserved in ascending id order to
	// bound lock-ordering deadlocks across concurrent sales.
	demand := aggregateDemand(sale.Items)

	var lowLevels []domain.StockLevel
	err = s.db.Transaction(ctx, func(tx pgx.Tx) error {
		for _, d := range demand {
			level, err := s.ledger.CheckAndReserve(ctx, tx, d.productID, d.quantity, ports.MovementRef{
				Reason:  "sale",
				ActorID: actorID,
				SaleID:  &sale.ID,
			})
			if err != nil {
				return err
			}
			if level.BelowMinimum() {
				lowLevels = append(lowLevels, *level)
			}
		}
		return s.sales.SaveInTx(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale created",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)),
		slog.String("net_total", sale.NetTotal.StringFixed(2)),
		slog.Bool("regulated", sale.HasRegulatedItem))

	s.invalidateDashboards(ctx)
	s.enqueueLowStockScans(ctx, lowLevels)

	return sale, nil
}

// CancelSale restores stock with compensating IN movements and flips the sale
// to CANCELLED. Legal only from PENDING.
func (s *SaleService) CancelSale(ctx context.Context, saleID, actorID uuid.UUID) (*domain.Sale, error) {
	var sale *domain.Sale
	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		var err error
		sale, err = s.sales.FindByIDForUpdate(ctx, tx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return &domain.NotFoundError{Resource: "sale", ID: saleID.String()}
		}
		if err := sale.Transition(domain.StatusCancelled); err != nil {
			return err
		}

		for _, item := range sortedByProduct(sale.Items) {
			itemID := item.ID
			if _, err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity, ports.MovementRef{
				Reason:     "sale cancelled",
				ActorID:    actorID,
				SaleID:     &sale.ID,
				SaleItemID: &itemID,
			}); err != nil {
				return err
			}
		}

		return s.sales.UpdateStatusInTx(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale cancelled",
		slog.String("sale_id", saleID.String()),
		slog.String("actor_id", actorID.String()))

	s.invalidateDashboards(ctx)
	return sale, nil
}

// FinalizePayment flips a PENDING sale to PAID. Stock is not touched: goods
// left inventory when the sale was created, not when it was paid.
func (s *SaleService) FinalizePayment(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	var sale *domain.Sale
	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		var err error
		sale, err = s.sales.FindByIDForUpdate(ctx, tx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return &domain.NotFoundError{Resource: "sale", ID: saleID.String()}
		}
		if err := sale.Transition(domain.StatusPaid); err != nil {
			return err
		}
		return s.sales.UpdateStatusInTx(ctx, tx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale payment finalized",
		slog.String("sale_id", saleID.String()))

	s.invalidateDashboards(ctx)
	return sale, nil
}

// ArchivePrescription records the regulatory archive exactly once, storing
// the scanned document when one is provided.
func (s *SaleService) ArchivePrescription(ctx context.Context, saleID uuid.UUID, prescriptionNumber string, document []byte) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Resource: "sale", ID: saleID.String()}
	}

	docKey := ""
	if len(document) > 0 {
		if s.storage == nil {
			return nil, &domain.InfrastructureError{Op: "archive prescription", Err: fmt.Errorf("document storage not configured")}
		}
		docKey = fmt.Sprintf("prescriptions/%s", sale.ID)
		if _, err := s.storage.Upload(ctx, docKey, bytes.NewReader(document), "application/octet-stream"); err != nil {
			return nil, &domain.InfrastructureError{Op: "archive prescription", Err: err}
		}
	}

	if err := sale.MarkPrescriptionArchived(docKey); err != nil {
		return nil, err
	}
	if prescriptionNumber != "" && sale.Prescription != nil {
		sale.Prescription.Number = prescriptionNumber
	}

	if err := s.sales.MarkPrescriptionArchived(ctx, sale); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "prescription archived",
		slog.String("sale_id", saleID.String()),
		slog.Bool("document_stored", docKey != ""))

	return sale, nil
}

// GetSale retrieves one sale with its items.
func (s *SaleService) GetSale(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, &domain.NotFoundError{Resource: "sale", ID: saleID.String()}
	}
	return sale, nil
}

// ListSales retrieves sales with filtering and pagination. Plain reads, no
// locks held.
func (s *SaleService) ListSales(ctx context.Context, params ports.SaleListParams) (*ports.SaleListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 50
	}
	if params.PageSize > 500 {
		params.PageSize = 500
	}

	sales, totalCount, err := s.sales.FindAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	totalPages := int(totalCount) / params.PageSize
	if int(totalCount)%params.PageSize > 0 {
		totalPages++
	}

	return &ports.SaleListResult{
		Sales:      sales,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// Helpers

func validateSaleShape(input ports.CreateSaleInput) error {
	var violations []string

	if !input.PaymentMethod.Valid() {
		violations = append(violations, fmt.Sprintf("payment method %q is not accepted", input.PaymentMethod))
	}
	if len(input.Items) == 0 {
		violations = append(violations, "sale must have at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			violations = append(violations, fmt.Sprintf("item %d: product id is required", i))
		}
		if item.Quantity <= 0 {
			violations = append(violations, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			violations = append(violations, fmt.Sprintf("item %d: unit price cannot be negative", i))
		}
		if item.DiscountPercent != nil &&
			(item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(decimal.NewFromInt(100))) {
			violations = append(violations, fmt.Sprintf("item %d: discount must be between 0 and 100", i))
		}
	}

	return domain.NewValidationError(violations)
}

func (s *SaleService) loadProducts(ctx context.Context, items []ports.CreateSaleItemInput) (map[uuid.UUID]*domain.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return nil, &domain.NotFoundError{Resource: "product", ID: id.String()}
		}
	}
	return catalog, nil
}

func (s *SaleService) buildSale(input ports.CreateSaleInput, catalog map[uuid.UUID]*domain.Product, hasRegulated bool) (*domain.Sale, error) {
	lines := make([]domain.PricingLine, 0, len(input.Items))
	for _, item := range input.Items {
		unitPrice := catalog[item.ProductID].SalePrice
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		discount := decimal.Zero
		if item.DiscountPercent != nil {
			discount = *item.DiscountPercent
		}
		lines = append(lines, domain.PricingLine{
			Quantity:        item.Quantity,
			UnitPrice:       unitPrice,
			DiscountPercent: discount,
		})
	}

	pricing, err := domain.ComputePricing(lines)
	if err != nil {
		return nil, domain.NewValidationError([]string{err.Error()})
	}

	sale := &domain.Sale{
		CustomerID:       input.CustomerID,
		GrossTotal:       pricing.GrossTotal,
		DiscountTotal:    pricing.DiscountTotal,
		NetTotal:         pricing.NetTotal,
		PaymentMethod:    input.PaymentMethod,
		Status:           domain.StatusPending,
		HasRegulatedItem: hasRegulated,
		AssistedSale:     input.AssistedSale,
		Justification:    input.Justification,
		Notes:            input.Notes,
	}

	if hasRegulated {
		prescriptionDate := time.Time{}
		if input.PrescriptionDate != nil {
			prescriptionDate = *input.PrescriptionDate
		}
		sale.Prescription = &domain.PrescriptionInfo{
			Number:          input.PrescriptionNumber,
			Date:            prescriptionDate,
			PatientName:     input.PatientName,
			PatientDocument: input.PatientDocument,
			PatientDocType:  input.PatientDocType,
			PatientAddress:  input.PatientAddress,
		}
	}

	for i, item := range input.Items {
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       lines[i].UnitPrice,
			DiscountPercent: lines[i].DiscountPercent,
			Subtotal:        pricing.Lines[i].Subtotal,
			DiscountAmount:  pricing.Lines[i].DiscountAmount,
			Total:           pricing.Lines[i].Total,
		})
	}

	return sale, nil
}

func complianceInput(input ports.CreateSaleInput) domain.ComplianceInput {
	return domain.ComplianceInput{
		CustomerLinked:     input.CustomerID != nil,
		SellerIsPharmacist: !input.AssistedSale,
		AssistedSale:       input.AssistedSale,
		Justification:      input.Justification,
		PrescriptionNumber: input.PrescriptionNumber,
		PrescriptionDate:   input.PrescriptionDate,
		PatientName:        input.PatientName,
		PatientDocument:    input.PatientDocument,
		PatientDocType:     input.PatientDocType,
		PatientAddress:     input.PatientAddress,
		BuyerName:          input.BuyerName,
		BuyerDocument:      input.BuyerDocument,
		BuyerDocType:       input.BuyerDocType,
	}
}

type productDemand struct {
	productID uuid.UUID
	quantity  int
}

// aggregateDemand sums quantities per product and orders them by product id.
func aggregateDemand(items []domain.SaleItem) []productDemand {
	byProduct := make(map[uuid.UUID]int)
	for _, item := range items {
		byProduct[item.ProductID] += item.Quantity
	}

	demand := make([]productDemand, 0, len(byProduct))
	for id, qty := range byProduct {
		demand = append(demand, productDemand{productID: id, quantity: qty})
	}
	sort.Slice(demand, func(i, j int) bool {
		return demand[i].productID.String() < demand[j].productID.String()
	})
	return demand
}

func sortedByProduct(items []domain.SaleItem) []domain.SaleItem {
	sorted := make([]domain.SaleItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProductID == sorted[j].ProductID {
			return sorted[i].ID.String() < sorted[j].ID.String()
		}
		return sorted[i].ProductID.String() < sorted[j].ProductID.String()
	})
	return sorted
}

func (s *SaleService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "dash:*"); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate dashboard cache",
			slog.String("error", err.Error()))
	}
}

func (s *SaleService) enqueueLowStockScans(ctx context.Context, levels []domain.StockLevel) {
	if s.tasks == nil || len(levels) == 0 {
		return
	}
	for _, level := range levels {
		payload, err := json.Marshal(workers.LowStockPayload{
			ProductID: level.ProductID,
			Quantity:  level.Quantity,
			Minimum:   level.MinQuantity,
		})
		if err != nil {
			continue
		}
		if _, err := s.tasks.Enqueue(asynq.NewTask(workers.TypeLowStockScan, payload)); err != nil {
			s.logger.WarnContext(ctx, "failed to enqueue low stock scan",
				slog.String("product_id", level.ProductID.String()),
				slog.String("error", err.Error()))
		}
	}
}
