// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/pkg/config"
)

// CleanupProcessor handles periodic housekeeping tasks.
type CleanupProcessor struct {
	db     *db.Database
	config *config.Config
	logger *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(db *db.Database, config *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		db:     db,
		config: config,
		logger: logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupResolvedAlerts drops replenishment alerts resolved more than 30
// days ago. Movement history is append-only and never touched here.
func (p *CleanupProcessor) CleanupResolvedAlerts(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up resolved alerts")

	query := `DELETE FROM replenishment_alerts
		WHERE resolved_at IS NOT NULL AND resolved_at < NOW() - INTERVAL '30 days'`

	result, err := p.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to cleanup resolved alerts: %w", err)
	}

	p.logger.InfoContext(ctx, "resolved alerts cleaned up",
		slog.Int64("rows_deleted", result.RowsAffected()))

	return nil
}

// CleanupTempFiles removes old temporary report files
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up temp files")

	tempDir := p.config.Reports.TempDir
	maxAge := 24 * time.Hour

	var deletedCount int
	err := filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete temp file",
					slog.String("file", path),
					slog.String("error", err.Error()))
			} else {
				deletedCount++
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
