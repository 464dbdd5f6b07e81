// internal/workers/lowstock_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
)

// LowStockProcessor turns low-stock signals into replenishment alerts.
type LowStockProcessor struct {
	db     *db.Database
	logger *slog.Logger
}

// NewLowStockProcessor creates a new low stock processor
func NewLowStockProcessor(db *db.Database, logger *slog.Logger) *LowStockProcessor {
	return &LowStockProcessor{
		db:     db,
		logger: logger.With(slog.String("processor", "low_stock")),
	}
}

// ProcessLowStock re-checks the current level and upserts a replenishment
// alert when the product is still at or under its minimum. The re-check
// matters: a restock may have landed between enqueue and processing.
func (p *LowStockProcessor) ProcessLowStock(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	var quantity, minimum int
	err := p.db.QueryRow(ctx,
		`SELECT quantity, min_quantity FROM stock_levels WHERE product_id = $1`,
		payload.ProductID,
	).Scan(&quantity, &minimum)
	if err != nil {
		if err == pgx.ErrNoRows {
			p.logger.WarnContext(ctx, "stock level vanished before low stock check",
				slog.String("product_id", payload.ProductID.String()))
			return nil
		}
		return fmt.Errorf("failed to read stock level: %w", err)
	}

	if quantity > minimum {
		// Restocked in the meantime, resolve any open alert.
		_, err := p.db.Exec(ctx,
			`UPDATE replenishment_alerts SET resolved_at = NOW()
			 WHERE product_id = $1 AND resolved_at IS NULL`,
			payload.ProductID)
		if err != nil {
			return fmt.Errorf("failed to resolve alert: %w", err)
		}
		return nil
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO replenishment_alerts (product_id, quantity, min_quantity, raised_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (product_id) WHERE resolved_at IS NULL
		DO UPDATE SET quantity = EXCLUDED.quantity, min_quantity = EXCLUDED.min_quantity`,
		payload.ProductID, quantity, minimum)
	if err != nil {
		return fmt.Errorf("failed to upsert replenishment alert: %w", err)
	}

	p.logger.InfoContext(ctx, "replenishment alert raised",
		slog.String("product_id", payload.ProductID.String()),
		slog.Int("quantity", quantity),
		slog.Int("minimum", minimum))

	return nil
}
