// internal/core/services/stock.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// StockService exposes ledger reads and manual corrections. All writes still
// flow through the ledger so every change leaves a movement row behind.
type StockService struct {
	ledger ports.StockLedger
	logger *slog.Logger
}

// Statically assert that *StockService implements the StockService interface.
var _ ports.StockService = (*StockService)(nil)

// NewStockService creates a new stock service
func NewStockService(ledger ports.StockLedger, logger *slog.Logger) *StockService {
	return &StockService{
		ledger: ledger,
		logger: logger.With(slog.String("service", "stock")),
	}
}

// GetLevel returns the current level for one product.
func (s *StockService) GetLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error) {
	level, err := s.ledger.GetLevel(ctx, productID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, &domain.NotFoundError{Resource: "stock level", ID: productID.String()}
	}
	return level, nil
}

// GetMovements returns the level plus one page of movement history, newest
// first.
func (s *StockService) GetMovements(ctx context.Context, productID uuid.UUID, page, pageSize int) (*ports.StockView, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}

	level, err := s.GetLevel(ctx, productID)
	if err != nil {
		return nil, err
	}

	movements, total, err := s.ledger.ListMovements(ctx, productID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	return &ports.StockView{
		Level:      level,
		Movements:  movements,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// Adjust applies a signed manual correction. Zero deltas are rejected so the
// movement history never records a no-op.
func (s *StockService) Adjust(ctx context.Context, productID uuid.UUID, delta int, kind domain.MovementKind, reason string, actorID uuid.UUID) (*domain.StockLevel, error) {
	var violations []string
	if delta == 0 {
		violations = append(violations, "adjustment delta cannot be zero")
	}
	switch kind {
	case domain.MovementAdjustment, domain.MovementLoss, domain.MovementExpiry:
	case "":
		kind = domain.MovementAdjustment
	default:
		violations = append(violations, fmt.Sprintf("movement kind %q is not a manual correction", kind))
	}
	if (kind == domain.MovementLoss || kind == domain.MovementExpiry) && delta > 0 {
		violations = append(violations, fmt.Sprintf("%s adjustments must decrease stock", kind))
	}
	if reason == "" {
		violations = append(violations, "adjustment reason is required")
	}
	if err := domain.NewValidationError(violations); err != nil {
		return nil, err
	}

	level, err := s.ledger.Adjust(ctx, productID, delta, ports.MovementRef{
		Kind:    kind,
		Reason:  reason,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID.String()),
		slog.Int("delta", delta),
		slog.String("kind", string(kind)),
		slog.Int("quantity", level.Quantity))

	return level, nil
}

// Reconcile recomputes a product's quantity from its full movement history
// and reports any drift from the stored aggregate.
func (s *StockService) Reconcile(ctx context.Context, productID uuid.UUID) (*ports.ReconcileReport, error) {
	stored, fromMovements, err := s.ledger.Reconcile(ctx, productID)
	if err != nil {
		return nil, err
	}

	report := &ports.ReconcileReport{
		ProductID:     productID,
		Stored:        stored,
		FromMovements: fromMovements,
		Drift:         stored - fromMovements,
	}
	if report.Drift != 0 {
		s.logger.WarnContext(ctx, "stock drift detected",
			slog.String("product_id", productID.String()),
			slog.Int("stored", stored),
			slog.Int("from_movements", fromMovements))
	}
	return report, nil
}
