// internal/handlers/dashboard.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	redis_a "github.com/farmapos/farmapos-be/internal/adapters/redis_adapter"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// DashboardHandler serves the counter-facing overview. Aggregates are cached
// and invalidated on every committed sale, so figures lag at most one write.
type DashboardHandler struct {
	db     *db.Database
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(database *db.Database, cache ports.CacheRepository, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		db:     database,
		cache:  cache,
		logger: logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, "main")
	var dashboard DashboardData

	err := h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
		return h.loadDashboardData(ctx)
	}, 5*time.Minute)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) loadDashboardData(ctx context.Context) (*DashboardData, error) {
	dashboard := &DashboardData{
		Timestamp: time.Now(),
	}

	summaryQuery := `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= date_trunc('day', NOW())) AS sales_today,
			COALESCE(SUM(net_total) FILTER (
				WHERE status = 'PAID' AND created_at >= date_trunc('day', NOW())
			), 0) AS revenue_today,
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_sales,
			COUNT(*) FILTER (
				WHERE has_regulated_item AND NOT prescription_archived AND status <> 'CANCELLED'
			) AS prescriptions_pending
		FROM sales
	`
	err := h.db.QueryRow(ctx, summaryQuery).Scan(
		&dashboard.Summary.SalesToday,
		&dashboard.Summary.RevenueToday,
		&dashboard.Summary.PendingSales,
		&dashboard.Summary.PrescriptionsPending,
	)
	if err != nil {
		return nil, err
	}

	alertQuery := `
		SELECT COUNT(*) FROM replenishment_alerts WHERE resolved_at IS NULL
	`
	if err := h.db.QueryRow(ctx, alertQuery).Scan(&dashboard.Summary.OpenAlerts); err != nil {
		return nil, err
	}

	lowStockQuery := `
		SELECT l.product_id, p.sku, p.name, l.quantity, l.min_quantity
		FROM stock_levels l
		JOIN products p ON p.id = l.product_id
		WHERE l.quantity <= l.min_quantity AND p.active
		ORDER BY (l.min_quantity - l.quantity) DESC
		LIMIT 20
	`
	rows, err := h.db.Query(ctx, lowStockQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Quantity, &item.MinQuantity); err != nil {
			return nil, err
		}
		dashboard.LowStock = append(dashboard.LowStock, item)
	}

	return dashboard, rows.Err()
}

// DashboardData is the cached overview payload
type DashboardData struct {
	Summary   DashboardSummary `json:"summary"`
	LowStock  []LowStockItem   `json:"low_stock"`
	Timestamp time.Time        `json:"timestamp"`
}

// DashboardSummary holds the headline counters
type DashboardSummary struct {
	SalesToday           int64           `json:"sales_today"`
	RevenueToday         decimal.Decimal `json:"revenue_today"`
	PendingSales         int64           `json:"pending_sales"`
	PrescriptionsPending int64           `json:"prescriptions_pending"`
	OpenAlerts           int64           `json:"open_alerts"`
}

// LowStockItem is one product at or under its replenishment threshold
type LowStockItem struct {
	ProductID   string `json:"product_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}
