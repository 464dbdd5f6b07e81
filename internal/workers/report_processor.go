// internal/workers/report_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// ReportProcessor builds sales report workbooks and stores them.
type ReportProcessor struct {
	db      *db.Database
	storage ports.StorageClient
	logger  *slog.Logger
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(db *db.Database, storage ports.StorageClient, logger *slog.Logger) *ReportProcessor {
	return &ReportProcessor{
		db:      db,
		storage: storage,
		logger:  logger.With(slog.String("processor", "report")),
	}
}

type reportRow struct {
	id            string
	createdAt     time.Time
	paymentMethod string
	status        string
	itemCount     int
	grossTotal    decimal.Decimal
	discountTotal decimal.Decimal
	netTotal      decimal.Decimal
	regulated     bool
}

// ProcessSalesReport queries the sales in range, renders an xlsx workbook
// and uploads it under the job's object key.
func (p *ReportProcessor) ProcessSalesReport(ctx context.Context, t *asynq.Task) error {
	var payload SalesReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "building sales report",
		slog.String("job_id", payload.JobID.String()),
		slog.Time("from", payload.From),
		slog.Time("to", payload.To))

	rows, err := p.querySales(ctx, payload.From, payload.To)
	if err != nil {
		p.failJob(ctx, payload, err)
		return err
	}

	workbook, err := p.render(rows)
	if err != nil {
		p.failJob(ctx, payload, err)
		return err
	}

	key := fmt.Sprintf("reports/sales_%s.xlsx", payload.JobID)
	if _, err := p.storage.Upload(ctx, key, workbook,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		p.failJob(ctx, payload, err)
		return fmt.Errorf("failed to upload report: %w", err)
	}

	_, err = p.db.Exec(ctx, `
		UPDATE report_jobs SET status = 'completed', object_key = $2, completed_at = NOW()
		WHERE id = $1`,
		payload.JobID, key)
	if err != nil {
		return fmt.Errorf("failed to mark report completed: %w", err)
	}

	p.logger.InfoContext(ctx, "sales report stored",
		slog.String("job_id", payload.JobID.String()),
		slog.String("object_key", key),
		slog.Int("rows", len(rows)))

	return nil
}

func (p *ReportProcessor) querySales(ctx context.Context, from, to time.Time) ([]reportRow, error) {
	rows, err := p.db.Query(ctx, `
		SELECT s.id, s.created_at, s.payment_method, s.status,
		       COUNT(i.id), s.gross_total, s.discount_total, s.net_total,
		       s.has_regulated_item
		FROM sales s
		LEFT JOIN sale_items i ON i.sale_id = s.id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY s.id
		ORDER BY s.created_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var result []reportRow
	for rows.Next() {
		var r reportRow
		if err := rows.Scan(&r.id, &r.createdAt, &r.paymentMethod, &r.status,
			&r.itemCount, &r.grossTotal, &r.discountTotal, &r.netTotal,
			&r.regulated); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *ReportProcessor) render(sales []reportRow) (*bytes.Buffer, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range []string{"Sale ID", "Date", "Payment Method", "Status",
		"Items", "Gross", "Discount", "Net", "Regulated"} {
		header.AddCell().SetString(h)
	}

	netSum := decimal.Zero
	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().SetString(s.id)
		row.AddCell().SetString(s.createdAt.Format("2006-01-02 15:04"))
		row.AddCell().SetString(s.paymentMethod)
		row.AddCell().SetString(s.status)
		row.AddCell().SetInt(s.itemCount)
		row.AddCell().SetString(s.grossTotal.StringFixed(2))
		row.AddCell().SetString(s.discountTotal.StringFixed(2))
		row.AddCell().SetString(s.netTotal.StringFixed(2))
		row.AddCell().SetBool(s.regulated)
		if s.status == "PAID" {
			netSum = netSum.Add(s.netTotal)
		}
	}

	totals := sheet.AddRow()
	totals.AddCell().SetString("TOTAL PAID")
	for i := 0; i < 6; i++ {
		totals.AddCell()
	}
	totals.AddCell().SetString(netSum.StringFixed(2))

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return &buf, nil
}

func (p *ReportProcessor) failJob(ctx context.Context, payload SalesReportPayload, cause error) {
	if _, err := p.db.Exec(ctx,
		`UPDATE report_jobs SET status = 'failed', completed_at = NOW() WHERE id = $1`,
		payload.JobID); err != nil {
		p.logger.ErrorContext(ctx, "failed to mark report job failed",
			slog.String("job_id", payload.JobID.String()),
			slog.String("error", err.Error()))
	}
	p.logger.ErrorContext(ctx, "sales report failed",
		slog.String("job_id", payload.JobID.String()),
		slog.String("error", cause.Error()))
}
