// internal/workers/tasks.go
package workers

import (
	"time"

	"github.com/google/uuid"
)

// Task type names registered on the asynq mux.
const (
	TypeLowStockScan     = "stock:low_scan"
	TypeSalesReport      = "reports:sales"
	TypeCleanupTempFiles = "cleanup:temp_files"
	TypeCleanupAlerts    = "cleanup:resolved_alerts"
)

// LowStockPayload identifies a product that dropped to or under its minimum
// at sale commit time. The processor re-checks before raising an alert.
type LowStockPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Minimum   int       `json:"minimum"`
}

// SalesReportPayload describes one requested sales report.
type SalesReportPayload struct {
	JobID       uuid.UUID `json:"job_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	RequestedBy uuid.UUID `json:"requested_by"`
}
