// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/adapters/storage"
	"github.com/farmapos/farmapos-be/internal/pkg/config"
	"github.com/farmapos/farmapos-be/internal/pkg/logger"
	"github.com/farmapos/farmapos-be/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")
	slogger.Info("starting background worker")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx := context.Background()

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, slogger)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	s3Storage, err := storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, slogger)
	if err != nil {
		slogger.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		asynq.Config{
			Concurrency:     cfg.Asynq.Concurrency,
			Queues:          cfg.Asynq.Queues,
			StrictPriority:  cfg.Asynq.StrictPriority,
			ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
			Logger:          &asynqLogger{logger: slogger},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slogger.ErrorContext(ctx, "task failed",
					slog.String("type", task.Type()),
					slog.String("error", err.Error()))
			}),
		},
	)

	lowStockProcessor := workers.NewLowStockProcessor(database, slogger)
	reportProcessor := workers.NewReportProcessor(database, s3Storage, slogger)
	cleanupProcessor := workers.NewCleanupProcessor(database, cfg, slogger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(workers.TypeLowStockScan, lowStockProcessor.ProcessLowStock)
	mux.HandleFunc(workers.TypeSalesReport, reportProcessor.ProcessSalesReport)
	mux.HandleFunc(workers.TypeCleanupAlerts, cleanupProcessor.CleanupResolvedAlerts)
	mux.HandleFunc(workers.TypeCleanupTempFiles, cleanupProcessor.CleanupTempFiles)

	// Periodic housekeeping.
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		&asynq.SchedulerOpts{
			Logger: &asynqLogger{logger: slogger},
		},
	)
	if _, err := scheduler.Register("@daily", asynq.NewTask(workers.TypeCleanupAlerts, nil)); err != nil {
		slogger.Error("failed to register alert cleanup", slog.String("error", err.Error()))
	}
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Reports.CleanupInterval.Round(time.Minute)),
		asynq.NewTask(workers.TypeCleanupTempFiles, nil),
	); err != nil {
		slogger.Error("failed to register temp file cleanup", slog.String("error", err.Error()))
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			slogger.Error("scheduler stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slogger.Info("worker started",
			slog.Int("concurrency", cfg.Asynq.Concurrency),
			slog.Any("queues", cfg.Asynq.Queues))
		if err := srv.Run(mux); err != nil {
			slogger.Error("worker stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))
	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
