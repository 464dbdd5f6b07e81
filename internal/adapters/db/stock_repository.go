// internal/adapters/db/stock_repository.go
package db

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// stockRepository implements ports.StockLedger on top of PostgreSQL row
// locks. Every quantity change goes through SELECT ... FOR UPDATE so two
// concurrent sales against the same product serialize on the stock row.
type stockRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewStockRepository creates a new stock ledger repository
func NewStockRepository(db *Database, logger *slog.Logger) ports.StockLedger {
	return &stockRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "stock")),
	}
}

const lockLevelQuery = `
	SELECT product_id, quantity, min_quantity, max_quantity, updated_at
	FROM stock_levels
	WHERE product_id = $1
	FOR UPDATE`

func scanLevel(row pgx.Row) (*domain.StockLevel, error) {
	level := &domain.StockLevel{}
	err := row.Scan(&level.ProductID, &level.Quantity, &level.MinQuantity,
		&level.MaxQuantity, &level.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return level, nil
}

// CheckAndReserve locks the stock row, rejects over-draws with a typed error
// and records the OUT movement with the pre and post quantities.
func (r *stockRepository) CheckAndReserve(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int, ref ports.MovementRef) (*domain.StockLevel, error) {
	if qty <= 0 {
		return nil, domain.NewValidationError([]string{"reserve quantity must be positive"})
	}

	level, err := scanLevel(tx.QueryRow(ctx, lockLevelQuery, productID))
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "lock stock level", Err: err}
	}
	if level == nil {
		return nil, &domain.NotFoundError{Resource: "stock level", ID: productID.String()}
	}

	if level.Quantity < qty {
		return nil, &domain.InsufficientStockError{
			ProductID: productID,
			Available: level.Quantity,
			Requested: qty,
		}
	}

	prior := level.Quantity
	level.Quantity -= qty

	if err := r.applyChange(ctx, tx, level, prior, domain.MovementOut, ref); err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "stock reserved",
		slog.String("product_id", productID.String()),
		slog.Int("quantity", qty),
		slog.Int("remaining", level.Quantity))

	return level, nil
}

// Release credits qty back inside the caller's transaction.
func (r *stockRepository) Release(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int, ref ports.MovementRef) (*domain.StockLevel, error) {
	if qty <= 0 {
		return nil, domain.NewValidationError([]string{"release quantity must be positive"})
	}

	level, err := scanLevel(tx.QueryRow(ctx, lockLevelQuery, productID))
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "lock stock level", Err: err}
	}
	if level == nil {
		return nil, &domain.NotFoundError{Resource: "stock level", ID: productID.String()}
	}

	prior := level.Quantity
	level.Quantity += qty

	if err := r.applyChange(ctx, tx, level, prior, domain.MovementIn, ref); err != nil {
		return nil, err
	}

	return level, nil
}

// Adjust applies a signed correction in its own transaction. The non-negative
// invariant holds for corrections exactly as it does for sales.
func (r *stockRepository) Adjust(ctx context.Context, productID uuid.UUID, delta int, ref ports.MovementRef) (*domain.StockLevel, error) {
	kind := ref.Kind
	if kind == "" {
		kind = domain.MovementAdjustment
	}

	var level *domain.StockLevel
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var err error
		level, err = scanLevel(tx.QueryRow(ctx, lockLevelQuery, productID))
		if err != nil {
			return &domain.InfrastructureError{Op: "lock stock level", Err: err}
		}
		if level == nil {
			return &domain.NotFoundError{Resource: "stock level", ID: productID.String()}
		}

		if level.Quantity+delta < 0 {
			return &domain.InsufficientStockError{
				ProductID: productID,
				Available: level.Quantity,
				Requested: -delta,
			}
		}

		prior := level.Quantity
		level.Quantity += delta
		return r.applyChange(ctx, tx, level, prior, kind, ref)
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// applyChange persists the updated level and appends the movement row. The
// two writes share the caller's transaction; a movement never exists without
// its level change and vice versa.
func (r *stockRepository) applyChange(ctx context.Context, tx pgx.Tx, level *domain.StockLevel, prior int, kind domain.MovementKind, ref ports.MovementRef) error {
	err := tx.QueryRow(ctx, `
		UPDATE stock_levels SET quantity = $2, updated_at = NOW()
		WHERE product_id = $1
		RETURNING updated_at`,
		level.ProductID, level.Quantity,
	).Scan(&level.UpdatedAt)
	if err != nil {
		return &domain.InfrastructureError{Op: "update stock level", Err: err}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (
			id, product_id, kind, quantity, prior_quantity, new_quantity,
			reason, actor_id, sale_id, sale_item_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
		uuid.New(), level.ProductID, kind, absInt(level.Quantity-prior),
		prior, level.Quantity, ref.Reason, ref.ActorID, ref.SaleID, ref.SaleItemID,
	)
	if err != nil {
		return &domain.InfrastructureError{Op: "insert stock movement", Err: err}
	}

	return nil
}

// GetLevel reads the current level without locking.
func (r *stockRepository) GetLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error) {
	level, err := scanLevel(r.db.QueryRow(ctx, `
		SELECT product_id, quantity, min_quantity, max_quantity, updated_at
		FROM stock_levels
		WHERE product_id = $1`,
		productID))
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "get stock level", Err: err}
	}
	return level, nil
}

// ListMovements returns one page of movement history, newest first.
func (r *stockRepository) ListMovements(ctx context.Context, productID uuid.UUID, page, pageSize int) ([]domain.StockMovement, int64, error) {
	var totalCount int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`,
		productID).Scan(&totalCount)
	if err != nil {
		return nil, 0, &domain.InfrastructureError{Op: "count stock movements", Err: err}
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, kind, quantity, prior_quantity, new_quantity,
		       reason, actor_id, sale_id, sale_item_id, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		productID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, &domain.InfrastructureError{Op: "list stock movements", Err: err}
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity,
			&m.PriorQuantity, &m.NewQuantity, &m.Reason, &m.ActorID,
			&m.SaleID, &m.SaleItemID, &m.CreatedAt)
		if err != nil {
			return nil, 0, &domain.InfrastructureError{Op: "scan stock movement", Err: err}
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.InfrastructureError{Op: "iterate stock movements", Err: err}
	}

	return movements, totalCount, nil
}

// Reconcile sums signed deltas over the full movement history and reads the
// stored aggregate in one statement so both sides see the same snapshot.
func (r *stockRepository) Reconcile(ctx context.Context, productID uuid.UUID) (int, int, error) {
	var stored, fromMovements int
	err := r.db.QueryRow(ctx, `
		SELECT l.quantity,
		       COALESCE((SELECT SUM(m.new_quantity - m.prior_quantity)
		                 FROM stock_movements m
		                 WHERE m.product_id = l.product_id), 0)
		FROM stock_levels l
		WHERE l.product_id = $1`,
		productID).Scan(&stored, &fromMovements)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, &domain.NotFoundError{Resource: "stock level", ID: productID.String()}
		}
		return 0, 0, &domain.InfrastructureError{Op: "reconcile stock", Err: err}
	}
	return stored, fromMovements, nil
}

// FindBelowMinimum lists products at or under their minimum threshold.
func (r *stockRepository) FindBelowMinimum(ctx context.Context, limit int) ([]domain.StockLevel, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT product_id, quantity, min_quantity, max_quantity, updated_at
		FROM stock_levels
		WHERE quantity <= min_quantity
		ORDER BY quantity - min_quantity ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "find below minimum", Err: err}
	}
	defer rows.Close()

	var levels []domain.StockLevel
	for rows.Next() {
		var l domain.StockLevel
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.MinQuantity,
			&l.MaxQuantity, &l.UpdatedAt); err != nil {
			return nil, &domain.InfrastructureError{Op: "scan stock level", Err: err}
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
