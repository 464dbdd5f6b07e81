// internal/handlers/reports.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/core/ports"
	"github.com/farmapos/farmapos-be/internal/workers"
)

// TaskEnqueuer submits background tasks to the queue.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReportHandler accepts report requests and serves finished reports via
// pre-signed URLs. Generation itself runs on the worker.
type ReportHandler struct {
	db      *db.Database
	tasks   TaskEnqueuer
	storage ports.StorageClient
	urlTTL  time.Duration
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(database *db.Database, tasks TaskEnqueuer, storage ports.StorageClient, urlTTL time.Duration, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		db:      database,
		tasks:   tasks,
		storage: storage,
		urlTTL:  urlTTL,
		logger:  logger.With(slog.String("handler", "reports")),
	}
}

// RequestSalesReportRequest describes the requested reporting window
type RequestSalesReportRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RequestSalesReport handles POST /api/v1/reports/sales
func (h *ReportHandler) RequestSalesReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RequestSalesReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From.IsZero() || req.To.IsZero() || !req.To.After(req.From) {
		respondError(w, http.StatusBadRequest, "from must precede to")
		return
	}

	jobID := uuid.New()

	insertQuery := `
		INSERT INTO report_jobs (id, status, requested_by, range_from, range_to)
		VALUES ($1, 'pending', $2, $3, $4)
	`
	if _, err := h.db.Exec(ctx, insertQuery, jobID, actorID, req.From, req.To); err != nil {
		h.logger.ErrorContext(ctx, "failed to create report job",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to create report job")
		return
	}

	payload, err := json.Marshal(workers.SalesReportPayload{
		JobID:       jobID,
		From:        req.From,
		To:          req.To,
		RequestedBy: actorID,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode report task")
		return
	}

	task := asynq.NewTask(workers.TypeSalesReport, payload)
	if _, err := h.tasks.Enqueue(task, asynq.Queue("reports"), asynq.MaxRetry(3)); err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue report task",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to enqueue report")
		return
	}

	h.logger.InfoContext(ctx, "sales report requested",
		slog.String("job_id", jobID.String()),
		slog.Time("from", req.From),
		slog.Time("to", req.To))

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": jobID,
		"status": "pending",
	})
}

// ReportStatusResponse is the polled job state
type ReportStatusResponse struct {
	JobID       uuid.UUID  `json:"job_id"`
	Status      string     `json:"status"`
	DownloadURL string     `json:"download_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetReport handles GET /api/v1/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid report ID format")
		return
	}

	var (
		resp      ReportStatusResponse
		objectKey *string
	)
	query := `
		SELECT id, status, object_key, created_at, completed_at
		FROM report_jobs
		WHERE id = $1
	`
	err = h.db.QueryRow(ctx, query, jobID).Scan(
		&resp.JobID, &resp.Status, &objectKey, &resp.CreatedAt, &resp.CompletedAt,
	)
	if err != nil {
		respondError(w, http.StatusNotFound, "report job not found")
		return
	}

	if resp.Status == "completed" && objectKey != nil {
		url, err := h.storage.GetPresignedURL(ctx, *objectKey, h.urlTTL)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to presign report URL",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()))
			respondError(w, http.StatusInternalServerError, "failed to generate download URL")
			return
		}
		resp.DownloadURL = url
	}

	respondJSON(w, http.StatusOK, resp)
}
