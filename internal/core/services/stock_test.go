// internal/core/services/stock_test.go
package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
	"github.com/farmapos/farmapos-be/internal/core/services"
	"github.com/farmapos/farmapos-be/test/mocks"
)

func newStockServiceFixture(t *testing.T) (*services.StockService, *mocks.MockStockLedger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockStockLedger(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return services.NewStockService(ledger, logger), ledger
}

func TestStockService_GetLevel(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("found", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().GetLevel(gomock.Any(), productID).
			Return(&domain.StockLevel{ProductID: productID, Quantity: 42}, nil)

		level, err := service.GetLevel(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 42, level.Quantity)
	})

	t.Run("missing product", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().GetLevel(gomock.Any(), productID).Return(nil, nil)

		_, err := service.GetLevel(ctx, productID)

		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "stock level", notFound.Resource)
	})
}

func TestStockService_GetMovements(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	service, ledger := newStockServiceFixture(t)
	ledger.EXPECT().GetLevel(gomock.Any(), productID).
		Return(&domain.StockLevel{ProductID: productID, Quantity: 10}, nil)
	ledger.EXPECT().ListMovements(gomock.Any(), productID, 1, 50).
		Return([]domain.StockMovement{
			{ProductID: productID, Kind: domain.MovementOut, Quantity: 2, PriorQuantity: 12, NewQuantity: 10},
		}, int64(1), nil)

	// Page 0 and size 0 normalize to the defaults.
	view, err := service.GetMovements(ctx, productID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, view.Level.Quantity)
	require.Len(t, view.Movements, 1)
	assert.Equal(t, -2, view.Movements[0].Delta())
	assert.Equal(t, int64(1), view.TotalCount)
}

func TestStockService_Adjust(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	actorID := uuid.New()

	t.Run("positive adjustment", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().
			Adjust(gomock.Any(), productID, 5, ports.MovementRef{
				Kind:    domain.MovementAdjustment,
				Reason:  "recount",
				ActorID: actorID,
			}).
			Return(&domain.StockLevel{ProductID: productID, Quantity: 25}, nil)

		level, err := service.Adjust(ctx, productID, 5, domain.MovementAdjustment, "recount", actorID)
		require.NoError(t, err)
		assert.Equal(t, 25, level.Quantity)
	})

	t.Run("empty kind defaults to adjustment", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().
			Adjust(gomock.Any(), productID, -1, ports.MovementRef{
				Kind:    domain.MovementAdjustment,
				Reason:  "broken blister",
				ActorID: actorID,
			}).
			Return(&domain.StockLevel{ProductID: productID, Quantity: 19}, nil)

		_, err := service.Adjust(ctx, productID, -1, "", "broken blister", actorID)
		require.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name      string
			delta     int
			kind      domain.MovementKind
			reason    string
			violation string
		}{
			{"zero delta", 0, domain.MovementAdjustment, "recount", "adjustment delta cannot be zero"},
			{"missing reason", 3, domain.MovementAdjustment, "", "adjustment reason is required"},
			{"loss must decrease", 3, domain.MovementLoss, "found extra", "LOSS adjustments must decrease stock"},
			{"expiry must decrease", 1, domain.MovementExpiry, "batch check", "EXPIRY adjustments must decrease stock"},
			{"sale kinds rejected", -1, domain.MovementOut, "manual out", `movement kind "OUT" is not a manual correction`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				service, _ := newStockServiceFixture(t)
				_, err := service.Adjust(ctx, productID, tt.delta, tt.kind, tt.reason, actorID)

				var validation *domain.ValidationError
				require.ErrorAs(t, err, &validation)
				assert.Contains(t, validation.Violations, tt.violation)
			})
		}
	})

	t.Run("ledger floor error passes through", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().
			Adjust(gomock.Any(), productID, -100, gomock.Any()).
			Return(nil, &domain.InsufficientStockError{ProductID: productID, Available: 4, Requested: 100})

		_, err := service.Adjust(ctx, productID, -100, domain.MovementLoss, "flood damage", actorID)

		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	})
}

func TestStockService_Reconcile(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("clean", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().Reconcile(gomock.Any(), productID).Return(37, 37, nil)

		report, err := service.Reconcile(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 37, report.Stored)
		assert.Equal(t, 37, report.FromMovements)
		assert.Zero(t, report.Drift)
	})

	t.Run("drift reported", func(t *testing.T) {
		service, ledger := newStockServiceFixture(t)
		ledger.EXPECT().Reconcile(gomock.Any(), productID).Return(40, 37, nil)

		report, err := service.Reconcile(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Drift)
	})
}
