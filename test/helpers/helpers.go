// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/pkg/config"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	level := slog.LevelError
	if testing.Verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupTestDB creates a PostgreSQL container for integration tests
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_farmapos",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_farmapos",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")

	ctx := context.Background()
	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		EmbeddedSource: db.MigrationsFS,
		TableName:      "schema_migrations",
		SchemaName:     "public",
	}

	err = db.RunMigrationsWithRetry(ctx, migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		mockDB.Close()
	})

	return mock, mockDB
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_farmapos",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Compliance: config.ComplianceConfig{
			PrescriptionValidityDays: 30,
		},
		Reports: config.ReportsConfig{
			TempDir:         "/tmp",
			CleanupInterval: time.Hour,
			URLTTL:          15 * time.Minute,
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestProduct builds a product with sensible defaults
func CreateTestProduct(overrides ...func(*domain.Product)) *domain.Product {
	product := &domain.Product{
		ID:         uuid.New(),
		SKU:        fmt.Sprintf("SKU-%s", uuid.New().String()[:8]),
		Name:       "Dipirona Sódica 500mg 20cp",
		Laboratory: "Medley",
		SalePrice:  decimal.NewFromFloat(8.90),
		Regulated:  false,
		Active:     true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	for _, override := range overrides {
		override(product)
	}

	return product
}

// CreateTestSale builds a pending sale with one item
func CreateTestSale(productID uuid.UUID, overrides ...func(*domain.Sale)) *domain.Sale {
	sale := &domain.Sale{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		GrossTotal:    decimal.NewFromFloat(17.80),
		DiscountTotal: decimal.Zero,
		NetTotal:      decimal.NewFromFloat(17.80),
		PaymentMethod: domain.PaymentCash,
		Status:        domain.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	sale.Items = []domain.SaleItem{
		{
			ID:              uuid.New(),
			SaleID:          sale.ID,
			ProductID:       productID,
			Quantity:        2,
			UnitPrice:       decimal.NewFromFloat(8.90),
			DiscountPercent: decimal.Zero,
			Subtotal:        decimal.NewFromFloat(17.80),
			DiscountAmount:  decimal.Zero,
			Total:           decimal.NewFromFloat(17.80),
		},
	}

	for _, override := range overrides {
		override(sale)
	}

	return sale
}

// SeedProduct inserts a product with its stock level and an opening IN
// movement so the ledger reconciles.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, product *domain.Product, quantity, minQuantity int) {
	t.Helper()

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO products (id, sku, name, laboratory, sale_price, regulated, requires_cold, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, product.ID, product.SKU, product.Name, product.Laboratory,
		product.SalePrice, product.Regulated, product.RequiresCold, product.Active)
	require.NoError(t, err, "Failed to seed product")

	_, err = pool.Exec(ctx, `
		INSERT INTO stock_levels (product_id, quantity, min_quantity, max_quantity)
		VALUES ($1, $2, $3, $4)
	`, product.ID, quantity, minQuantity, quantity*2)
	require.NoError(t, err, "Failed to seed stock level")

	if quantity > 0 {
		_, err = pool.Exec(ctx, `
			INSERT INTO stock_movements
				(id, product_id, kind, quantity, prior_quantity, new_quantity, reason, actor_id)
			VALUES ($1, $2, 'IN', $3, 0, $3, 'test seed', $4)
		`, uuid.New(), product.ID, quantity, uuid.Nil)
		require.NoError(t, err, "Failed to seed opening movement")
	}
}

// TruncateAllTables truncates all tables in the test database. Order matters
// because of foreign keys.
func TruncateAllTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	tables := []string{
		"stock_movements",
		"sale_items",
		"sales",
		"replenishment_alerts",
		"report_jobs",
		"stock_levels",
		"products",
	}

	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "Failed to truncate table: %s", table)
	}
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}
