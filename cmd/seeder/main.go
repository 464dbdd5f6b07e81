// cmd/seeder/main.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/adapters/db"
	"github.com/farmapos/farmapos-be/internal/pkg/config"
	"github.com/farmapos/farmapos-be/internal/pkg/logger"
)

type seedProduct struct {
	sku          string
	name         string
	laboratory   string
	price        string
	regulated    bool
	requiresCold bool
	quantity     int
	minQuantity  int
	maxQuantity  int
}

var catalog = []seedProduct{
	{"DIP500-20", "Dipirona Sódica 500mg 20cp", "Medley", "8.90", false, false, 120, 30, 300},
	{"PAR750-20", "Paracetamol 750mg 20cp", "EMS", "12.50", false, false, 90, 25, 250},
	{"IBU600-10", "Ibuprofeno 600mg 10cp", "Eurofarma", "15.20", false, false, 60, 20, 200},
	{"AMX500-21", "Amoxicilina 500mg 21caps", "Medley", "28.90", true, false, 45, 15, 120},
	{"AZI500-05", "Azitromicina 500mg 5cp", "Eurofarma", "34.60", true, false, 30, 10, 80},
	{"CLO02-30", "Clonazepam 2mg 30cp", "Roche", "22.40", true, false, 25, 10, 60},
	{"INS100-01", "Insulina NPH 100UI/mL", "Novo Nordisk", "89.90", true, true, 18, 8, 40},
	{"OME20-28", "Omeprazol 20mg 28caps", "EMS", "18.70", false, false, 110, 30, 280},
	{"LOS50-30", "Losartana Potássica 50mg 30cp", "Medley", "16.30", false, false, 95, 25, 240},
	{"VITC1G-10", "Vitamina C 1g Efervescente 10cp", "Bayer", "21.90", false, false, 70, 15, 150},
}

func main() {
	slogger := logger.SetupLogger("info", "text")
	slogger.Info("starting catalog seeder")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	migrationConfig := &db.MigrationConfig{
		DatabaseURL:    cfg.GetDatabaseURL(),
		EmbeddedSource: db.MigrationsFS,
		TableName:      "schema_migrations",
		SchemaName:     "public",
	}
	if err := db.RunMigrationsWithRetry(ctx, migrationConfig, slogger, 3); err != nil {
		slogger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}, slogger)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	seeded := 0
	err = database.Transaction(ctx, func(tx pgx.Tx) error {
		for _, p := range catalog {
			price, err := decimal.NewFromString(p.price)
			if err != nil {
				return err
			}

			productID := uuid.New()
			tag, err := tx.Exec(ctx, `
				INSERT INTO products (id, sku, name, laboratory, sale_price, regulated, requires_cold)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (sku) DO NOTHING
			`, productID, p.sku, p.name, p.laboratory, price, p.regulated, p.requiresCold)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				// Already seeded on a previous run.
				continue
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO stock_levels (product_id, quantity, min_quantity, max_quantity)
				VALUES ($1, $2, $3, $4)
			`, productID, p.quantity, p.minQuantity, p.maxQuantity); err != nil {
				return err
			}

			// Opening balance recorded as an IN movement so the ledger
			// reconciles from day one.
			if _, err := tx.Exec(ctx, `
				INSERT INTO stock_movements
					(id, product_id, kind, quantity, prior_quantity, new_quantity, reason, actor_id)
				VALUES ($1, $2, 'IN', $3, 0, $3, 'initial seed', $4)
			`, uuid.New(), productID, p.quantity, uuid.Nil); err != nil {
				return err
			}

			seeded++
		}
		return nil
	})
	if err != nil {
		slogger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("seeding complete",
		slog.Int("products", seeded),
		slog.Int("skipped", len(catalog)-seeded))
}
