// internal/core/services/sale_test.go
package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
	"github.com/farmapos/farmapos-be/internal/core/services"
	"github.com/farmapos/farmapos-be/internal/workers"
	"github.com/farmapos/farmapos-be/test/mocks"
)

// fakeTxRunner runs the transactional closure directly; the mocks underneath
// never touch the pgx.Tx they receive.
type fakeTxRunner struct{}

func (fakeTxRunner) Transaction(_ context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// recordingEnqueuer captures enqueued tasks for assertions.
type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type saleServiceFixture struct {
	sales    *mocks.MockSaleRepository
	ledger   *mocks.MockStockLedger
	products *mocks.MockProductRepository
	enqueuer *recordingEnqueuer
	service  *services.SaleService
}

func newSaleServiceFixture(t *testing.T, opts ...services.SaleServiceOption) *saleServiceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &saleServiceFixture{
		sales:    mocks.NewMockSaleRepository(ctrl),
		ledger:   mocks.NewMockStockLedger(ctrl),
		products: mocks.NewMockProductRepository(ctrl),
		enqueuer: &recordingEnqueuer{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, services.WithTaskEnqueuer(f.enqueuer))
	f.service = services.NewSaleService(f.sales, f.ledger, f.products, fakeTxRunner{}, logger, opts...)
	return f
}

func testProduct(regulated bool) *domain.Product {
	return &domain.Product{
		ID:        uuid.New(),
		SKU:       "DIP500-20",
		Name:      "Dipirona 500mg",
		SalePrice: decimal.RequireFromString("8.90"),
		Regulated: regulated,
		Active:    true,
	}
}

func catalogOf(products ...*domain.Product) map[uuid.UUID]*domain.Product {
	catalog := make(map[uuid.UUID]*domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

func levelFor(productID uuid.UUID, qty, min int) *domain.StockLevel {
	return &domain.StockLevel{ProductID: productID, Quantity: qty, MinQuantity: min}
}

func TestSaleService_CreateSale(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("success", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		product := testProduct(false)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), []uuid.UUID{product.ID}).
			Return(catalogOf(product), nil)
		f.ledger.EXPECT().
			CheckAndReserve(gomock.Any(), gomock.Any(), product.ID, 2, gomock.Any()).
			Return(levelFor(product.ID, 98, 10), nil)
		f.sales.EXPECT().
			SaveInTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		sale, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentPix,
			Items: []ports.CreateSaleItemInput{
				{ProductID: product.ID, Quantity: 2},
			},
		}, actorID)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, sale.Status)
		assert.Equal(t, actorID, sale.SellerID)
		assert.True(t, decimal.RequireFromString("17.80").Equal(sale.NetTotal))
		assert.False(t, sale.HasRegulatedItem)
		require.Len(t, sale.Items, 1)
		assert.Equal(t, sale.ID, sale.Items[0].SaleID)
		assert.Empty(t, f.enqueuer.tasks, "no low stock scan above minimum")
	})

	t.Run("insufficient stock aborts the whole sale", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		first := testProduct(false)
		second := testProduct(false)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), gomock.Any()).
			Return(catalogOf(first, second), nil)
		// Reservation order is by ascending product id; one of the two fails
		// and SaveInTx must never run.
		f.ledger.EXPECT().
			CheckAndReserve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ pgx.Tx, productID uuid.UUID, qty int, _ ports.MovementRef) (*domain.StockLevel, error) {
				if productID == second.ID {
					return nil, &domain.InsufficientStockError{ProductID: second.ID, Available: 1, Requested: qty}
				}
				return levelFor(productID, 50, 5), nil
			}).
			MinTimes(1).MaxTimes(2)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items: []ports.CreateSaleItemInput{
				{ProductID: first.ID, Quantity: 3},
				{ProductID: second.ID, Quantity: 5},
			},
		}, actorID)

		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, second.ID, stockErr.ProductID)
		assert.Empty(t, f.enqueuer.tasks)
	})

	t.Run("shape violations collected before any I/O", func(t *testing.T) {
		f := newSaleServiceFixture(t)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: "CHEQUE",
		}, actorID)

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.Violations, `payment method "CHEQUE" is not accepted`)
		assert.Contains(t, validation.Violations, "sale must have at least one item")
	})

	t.Run("zero quantity rejected before any ledger access", func(t *testing.T) {
		f := newSaleServiceFixture(t)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items:         []ports.CreateSaleItemInput{{ProductID: uuid.New(), Quantity: 0}},
		}, actorID)

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.Violations, "item 0: quantity must be positive")
	})

	t.Run("discount above 100 rejected", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		discount := decimal.NewFromInt(150)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items: []ports.CreateSaleItemInput{
				{ProductID: uuid.New(), Quantity: 1, DiscountPercent: &discount},
			},
		}, actorID)

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.Violations, "item 0: discount must be between 0 and 100")
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		missing := uuid.New()

		f.products.EXPECT().
			FindByIDs(gomock.Any(), []uuid.UUID{missing}).
			Return(map[uuid.UUID]*domain.Product{}, nil)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items:         []ports.CreateSaleItemInput{{ProductID: missing, Quantity: 1}},
		}, actorID)

		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "product", notFound.Resource)
	})

	t.Run("regulated item without capture fails compliance", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		product := testProduct(true)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), gomock.Any()).
			Return(catalogOf(product), nil)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items:         []ports.CreateSaleItemInput{{ProductID: product.ID, Quantity: 1}},
		}, actorID)

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.Violations, "prescription number is required")
		assert.Contains(t, validation.Violations, "prescription date is required")
	})

	t.Run("regulated item with full capture succeeds", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		product := testProduct(true)
		issued := time.Now().AddDate(0, 0, -3)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), gomock.Any()).
			Return(catalogOf(product), nil)
		f.ledger.EXPECT().
			CheckAndReserve(gomock.Any(), gomock.Any(), product.ID, 1, gomock.Any()).
			Return(levelFor(product.ID, 30, 5), nil)
		f.sales.EXPECT().
			SaveInTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		sale, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod:      domain.PaymentCash,
			Items:              []ports.CreateSaleItemInput{{ProductID: product.ID, Quantity: 1}},
			PrescriptionNumber: "CRM-12345/SP",
			PrescriptionDate:   &issued,
			PatientName:        "Maria Souza",
			PatientDocument:    "529.982.247-25",
			PatientDocType:     domain.DocumentCPF,
			PatientAddress:     "Rua das Flores, 123 - Centro",
			BuyerName:          "Joao Souza",
			BuyerDocument:      "529.982.247-25",
			BuyerDocType:       domain.DocumentCPF,
		}, actorID)

		require.NoError(t, err)
		assert.True(t, sale.HasRegulatedItem)
		require.NotNil(t, sale.Prescription)
		assert.Equal(t, "CRM-12345/SP", sale.Prescription.Number)
		assert.False(t, sale.PrescriptionArchived)
	})

	t.Run("repeated product lines reserve once with summed quantity", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		product := testProduct(false)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), []uuid.UUID{product.ID}).
			Return(catalogOf(product), nil)
		f.ledger.EXPECT().
			CheckAndReserve(gomock.Any(), gomock.Any(), product.ID, 5, gomock.Any()).
			Return(levelFor(product.ID, 95, 10), nil)
		f.sales.EXPECT().
			SaveInTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		sale, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items: []ports.CreateSaleItemInput{
				{ProductID: product.ID, Quantity: 2},
				{ProductID: product.ID, Quantity: 3},
			},
		}, actorID)

		require.NoError(t, err)
		assert.Len(t, sale.Items, 2, "lines stay separate even when demand aggregates")
	})

	t.Run("reservation hitting the minimum enqueues a low stock scan", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		product := testProduct(false)

		f.products.EXPECT().
			FindByIDs(gomock.Any(), gomock.Any()).
			Return(catalogOf(product), nil)
		f.ledger.EXPECT().
			CheckAndReserve(gomock.Any(), gomock.Any(), product.ID, 1, gomock.Any()).
			Return(levelFor(product.ID, 10, 10), nil)
		f.sales.EXPECT().
			SaveInTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := f.service.CreateSale(ctx, ports.CreateSaleInput{
			PaymentMethod: domain.PaymentCash,
			Items:         []ports.CreateSaleItemInput{{ProductID: product.ID, Quantity: 1}},
		}, actorID)

		require.NoError(t, err)
		require.Len(t, f.enqueuer.tasks, 1)
		assert.Equal(t, workers.TypeLowStockScan, f.enqueuer.tasks[0].Type())
	})
}

func TestSaleService_CancelSale(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("restores stock and flips to cancelled", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()
		productID := uuid.New()
		sale := &domain.Sale{
			ID:     saleID,
			Status: domain.StatusPending,
			Items: []domain.SaleItem{
				{ID: uuid.New(), SaleID: saleID, ProductID: productID, Quantity: 2},
			},
		}

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(sale, nil)
		f.ledger.EXPECT().
			Release(gomock.Any(), gomock.Any(), productID, 2, gomock.Any()).
			Return(levelFor(productID, 102, 10), nil)
		f.sales.EXPECT().
			UpdateStatusInTx(gomock.Any(), gomock.Any(), sale).
			Return(nil)

		result, err := f.service.CancelSale(ctx, saleID, actorID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, result.Status)
	})

	t.Run("cancel twice is a state conflict", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusCancelled}, nil)

		_, err := f.service.CancelSale(ctx, saleID, actorID)

		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("paid sale cannot be cancelled", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusPaid}, nil)

		_, err := f.service.CancelSale(ctx, saleID, actorID)

		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("not found", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(nil, nil)

		_, err := f.service.CancelSale(ctx, saleID, actorID)

		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestSaleService_FinalizePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("pending becomes paid without touching the ledger", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusPending}, nil)
		f.sales.EXPECT().
			UpdateStatusInTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		sale, err := f.service.FinalizePayment(ctx, saleID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, sale.Status)
	})

	t.Run("cancelled sale cannot be paid", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().
			FindByIDForUpdate(gomock.Any(), gomock.Any(), saleID).
			Return(&domain.Sale{ID: saleID, Status: domain.StatusCancelled}, nil)

		_, err := f.service.FinalizePayment(ctx, saleID)

		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
	})
}

func TestSaleService_ArchivePrescription(t *testing.T) {
	ctx := context.Background()

	t.Run("stores document and marks archived", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		storage := mocks.NewMockStorageClient(ctrl)
		f := newSaleServiceFixture(t, services.WithStorage(storage))

		saleID := uuid.New()
		sale := &domain.Sale{
			ID:               saleID,
			Status:           domain.StatusPaid,
			HasRegulatedItem: true,
			Prescription:     &domain.PrescriptionInfo{Number: "OLD-1"},
		}

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(sale, nil)
		storage.EXPECT().
			Upload(gomock.Any(), "prescriptions/"+saleID.String(), gomock.Any(), "application/octet-stream").
			Return("prescriptions/"+saleID.String(), nil)
		f.sales.EXPECT().MarkPrescriptionArchived(gomock.Any(), sale).Return(nil)

		result, err := f.service.ArchivePrescription(ctx, saleID, "CRM-99/SP", []byte("%PDF-1.4"))
		require.NoError(t, err)
		assert.True(t, result.PrescriptionArchived)
		assert.Equal(t, "prescriptions/"+saleID.String(), result.PrescriptionDocKey)
		assert.Equal(t, "CRM-99/SP", result.Prescription.Number)
	})

	t.Run("archives without a document", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()
		sale := &domain.Sale{ID: saleID, HasRegulatedItem: true}

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(sale, nil)
		f.sales.EXPECT().MarkPrescriptionArchived(gomock.Any(), sale).Return(nil)

		result, err := f.service.ArchivePrescription(ctx, saleID, "", nil)
		require.NoError(t, err)
		assert.True(t, result.PrescriptionArchived)
		assert.Empty(t, result.PrescriptionDocKey)
	})

	t.Run("already archived is a state conflict", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(&domain.Sale{
			ID:                   saleID,
			HasRegulatedItem:     true,
			PrescriptionArchived: true,
		}, nil)

		_, err := f.service.ArchivePrescription(ctx, saleID, "", nil)

		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("unregulated sale rejected", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(&domain.Sale{
			ID:               saleID,
			HasRegulatedItem: false,
		}, nil)

		_, err := f.service.ArchivePrescription(ctx, saleID, "", nil)

		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("document without configured storage", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(&domain.Sale{
			ID:               saleID,
			HasRegulatedItem: true,
		}, nil)

		_, err := f.service.ArchivePrescription(ctx, saleID, "", []byte("scan"))

		var infra *domain.InfrastructureError
		require.ErrorAs(t, err, &infra)
	})
}

func TestSaleService_GetSale(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newSaleServiceFixture(t)
		saleID := uuid.New()

		f.sales.EXPECT().FindByID(gomock.Any(), saleID).Return(nil, nil)

		_, err := f.service.GetSale(ctx, saleID)

		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestSaleService_ListSales(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes paging and computes total pages", func(t *testing.T) {
		f := newSaleServiceFixture(t)

		f.sales.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params ports.SaleListParams) ([]*domain.Sale, int64, error) {
				assert.Equal(t, 1, params.Page)
				assert.Equal(t, 50, params.PageSize)
				return []*domain.Sale{{ID: uuid.New()}}, 101, nil
			})

		result, err := f.service.ListSales(ctx, ports.SaleListParams{Page: 0, PageSize: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(101), result.TotalCount)
		assert.Equal(t, 3, result.TotalPages)
	})

	t.Run("caps page size", func(t *testing.T) {
		f := newSaleServiceFixture(t)

		f.sales.EXPECT().
			FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params ports.SaleListParams) ([]*domain.Sale, int64, error) {
				assert.Equal(t, 500, params.PageSize)
				return nil, 0, nil
			})

		_, err := f.service.ListSales(ctx, ports.SaleListParams{Page: 1, PageSize: 9999})
		require.NoError(t, err)
	})
}
