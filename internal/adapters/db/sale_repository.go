// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/farmapos/farmapos-be/internal/core/domain"
	"github.com/farmapos/farmapos-be/internal/core/ports"
)

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *Database, logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sale")),
	}
}

const saleColumns = `
	id, customer_id, seller_id, gross_total, discount_total, net_total,
	payment_method, status, has_regulated_item, prescription_archived,
	prescription_number, prescription_date, patient_name, patient_document,
	patient_doc_type, patient_address, prescription_doc_key,
	assisted_sale, justification, notes, created_at, updated_at`

// SaveInTx inserts the sale header and all items within the caller's
// transaction. Items go through one batch round trip.
func (r *saleRepository) SaveInTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error {
	var (
		prescriptionNumber, patientName, patientDocument sql.NullString
		patientDocType, patientAddress                   sql.NullString
		prescriptionDate                                 sql.NullTime
	)
	if p := sale.Prescription; p != nil {
		prescriptionNumber = sql.NullString{String: p.Number, Valid: p.Number != ""}
		prescriptionDate = sql.NullTime{Time: p.Date, Valid: !p.Date.IsZero()}
		patientName = sql.NullString{String: p.PatientName, Valid: p.PatientName != ""}
		patientDocument = sql.NullString{String: p.PatientDocument, Valid: p.PatientDocument != ""}
		patientDocType = sql.NullString{String: string(p.PatientDocType), Valid: p.PatientDocType != ""}
		patientAddress = sql.NullString{String: p.PatientAddress, Valid: p.PatientAddress != ""}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO sales (
			id, customer_id, seller_id, gross_total, discount_total, net_total,
			payment_method, status, has_regulated_item, prescription_archived,
			prescription_number, prescription_date, patient_name, patient_document,
			patient_doc_type, patient_address, prescription_doc_key,
			assisted_sale, justification, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)`,
		sale.ID, sale.CustomerID, sale.SellerID,
		sale.GrossTotal, sale.DiscountTotal, sale.NetTotal,
		sale.PaymentMethod, sale.Status, sale.HasRegulatedItem, sale.PrescriptionArchived,
		prescriptionNumber, prescriptionDate, patientName, patientDocument,
		patientDocType, patientAddress, nullString(sale.PrescriptionDocKey),
		sale.AssistedSale, nullString(sale.Justification), nullString(sale.Notes),
		sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return &domain.InfrastructureError{Op: "insert sale", Err: err}
	}

	batch := &pgx.Batch{}
	for i := range sale.Items {
		item := &sale.Items[i]
		batch.Queue(`
			INSERT INTO sale_items (
				id, sale_id, product_id, quantity, unit_price,
				discount_percent, subtotal, discount_amount, total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice,
			item.DiscountPercent, item.Subtotal, item.DiscountAmount, item.Total,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := range sale.Items {
		if _, err := br.Exec(); err != nil {
			return &domain.InfrastructureError{Op: fmt.Sprintf("insert sale item %d", i), Err: err}
		}
	}

	r.logger.DebugContext(ctx, "sale saved",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)))

	return nil
}

// FindByID loads the sale header and its items without locking.
func (r *saleRepository) FindByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := r.scanSale(r.db.QueryRow(ctx, query, saleID))
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, nil
	}

	if err := r.loadItems(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// FindByIDForUpdate locks the sale header row within tx.
func (r *saleRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, saleID uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 FOR UPDATE`

	sale, err := r.scanSale(tx.QueryRow(ctx, query, saleID))
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, nil
	}

	rows, err := tx.Query(ctx, itemsQuery, sale.ID)
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "load sale items", Err: err}
	}
	sale.Items, err = scanItems(rows)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateStatusInTx persists a lifecycle transition within the caller's
// transaction.
func (r *saleRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error {
	tag, err := tx.Exec(ctx,
		`UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`,
		sale.ID, sale.Status, sale.UpdatedAt)
	if err != nil {
		return &domain.InfrastructureError{Op: "update sale status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "sale", ID: sale.ID.String()}
	}
	return nil
}

// UpdateStatus persists a lifecycle transition outside a transaction.
func (r *saleRepository) UpdateStatus(ctx context.Context, sale *domain.Sale) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`,
		sale.ID, sale.Status, sale.UpdatedAt)
	if err != nil {
		return &domain.InfrastructureError{Op: "update sale status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "sale", ID: sale.ID.String()}
	}
	return nil
}

// MarkPrescriptionArchived records the archive flag, the document key and,
// when captured late, the prescription number.
func (r *saleRepository) MarkPrescriptionArchived(ctx context.Context, sale *domain.Sale) error {
	number := sql.NullString{}
	if sale.Prescription != nil && sale.Prescription.Number != "" {
		number = sql.NullString{String: sale.Prescription.Number, Valid: true}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE sales SET
			prescription_archived = TRUE,
			prescription_doc_key = COALESCE($2, prescription_doc_key),
			prescription_number = COALESCE($3, prescription_number),
			updated_at = $4
		WHERE id = $1`,
		sale.ID, nullString(sale.PrescriptionDocKey), number, sale.UpdatedAt)
	if err != nil {
		return &domain.InfrastructureError{Op: "mark prescription archived", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "sale", ID: sale.ID.String()}
	}
	return nil
}

// FindAll retrieves sales with filtering and pagination. Items are loaded in
// one query for the whole page.
func (r *saleRepository) FindAll(ctx context.Context, params ports.SaleListParams) ([]*domain.Sale, int64, error) {
	filter := saleFilter(params)

	qb := filter(squirrel.Select(
		"id", "customer_id", "seller_id", "gross_total", "discount_total", "net_total",
		"payment_method", "status", "has_regulated_item", "prescription_archived",
		"prescription_number", "prescription_date", "patient_name", "patient_document",
		"patient_doc_type", "patient_address", "prescription_doc_key",
		"assisted_sale", "justification", "notes", "created_at", "updated_at",
	).From("sales").
		PlaceholderFormat(squirrel.Dollar))

	countSQL, countArgs, err := filter(squirrel.Select("COUNT(*)").
		From("sales").
		PlaceholderFormat(squirrel.Dollar)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount)
	if err != nil && err != pgx.ErrNoRows {
		return nil, 0, &domain.InfrastructureError{Op: "count sales", Err: err}
	}

	qb = qb.OrderBy("created_at DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64((params.Page - 1) * params.PageSize))

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, &domain.InfrastructureError{Op: "query sales", Err: err}
	}
	defer rows.Close()

	var sales []*domain.Sale
	byID := make(map[uuid.UUID]*domain.Sale)
	for rows.Next() {
		sale, err := r.scanSaleRow(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
		byID[sale.ID] = sale
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.InfrastructureError{Op: "iterate sales", Err: err}
	}

	if len(sales) > 0 {
		ids := make([]uuid.UUID, 0, len(sales))
		for _, s := range sales {
			ids = append(ids, s.ID)
		}
		itemRows, err := r.db.Query(ctx, `
			SELECT id, sale_id, product_id, quantity, unit_price,
			       discount_percent, subtotal, discount_amount, total
			FROM sale_items
			WHERE sale_id = ANY($1)
			ORDER BY sale_id, id`,
			ids)
		if err != nil {
			return nil, 0, &domain.InfrastructureError{Op: "load sale items", Err: err}
		}
		items, err := scanItems(itemRows)
		if err != nil {
			return nil, 0, err
		}
		for _, item := range items {
			if sale, ok := byID[item.SaleID]; ok {
				sale.Items = append(sale.Items, item)
			}
		}
	}

	return sales, totalCount, nil
}

// saleFilter applies the list filters to any select over the sales table.
func saleFilter(params ports.SaleListParams) func(squirrel.SelectBuilder) squirrel.SelectBuilder {
	return func(qb squirrel.SelectBuilder) squirrel.SelectBuilder {
		if params.From != nil {
			qb = qb.Where(squirrel.GtOrEq{"created_at": *params.From})
		}
		if params.To != nil {
			qb = qb.Where(squirrel.Lt{"created_at": *params.To})
		}
		if params.CustomerID != nil {
			qb = qb.Where(squirrel.Eq{"customer_id": *params.CustomerID})
		}
		if params.SellerID != nil {
			qb = qb.Where(squirrel.Eq{"seller_id": *params.SellerID})
		}
		if params.PaymentMethod != "" {
			qb = qb.Where(squirrel.Eq{"payment_method": params.PaymentMethod})
		}
		if params.Status != "" {
			qb = qb.Where(squirrel.Eq{"status": params.Status})
		}
		if params.RegulatedOnly {
			qb = qb.Where(squirrel.Eq{"has_regulated_item": true})
		}
		return qb
	}
}

const itemsQuery = `
	SELECT id, sale_id, product_id, quantity, unit_price,
	       discount_percent, subtotal, discount_amount, total
	FROM sale_items
	WHERE sale_id = $1
	ORDER BY id`

func (r *saleRepository) loadItems(ctx context.Context, sale *domain.Sale) error {
	rows, err := r.db.Query(ctx, itemsQuery, sale.ID)
	if err != nil {
		return &domain.InfrastructureError{Op: "load sale items", Err: err}
	}
	sale.Items, err = scanItems(rows)
	return err
}

func scanItems(rows pgx.Rows) ([]domain.SaleItem, error) {
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var item domain.SaleItem
		err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.DiscountPercent, &item.Subtotal,
			&item.DiscountAmount, &item.Total)
		if err != nil {
			return nil, &domain.InfrastructureError{Op: "scan sale item", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.InfrastructureError{Op: "iterate sale items", Err: err}
	}
	return items, nil
}

func (r *saleRepository) scanSale(row pgx.Row) (*domain.Sale, error) {
	sale, err := scanSaleFrom(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, &domain.InfrastructureError{Op: "scan sale", Err: err}
	}
	return sale, nil
}

func (r *saleRepository) scanSaleRow(rows pgx.Rows) (*domain.Sale, error) {
	sale, err := scanSaleFrom(rows.Scan)
	if err != nil {
		return nil, &domain.InfrastructureError{Op: "scan sale", Err: err}
	}
	return sale, nil
}

func scanSaleFrom(scan func(...any) error) (*domain.Sale, error) {
	sale := &domain.Sale{}
	var (
		prescriptionNumber, patientName, patientDocument sql.NullString
		patientDocType, patientAddress, docKey           sql.NullString
		justification, notes                             sql.NullString
		prescriptionDate                                 sql.NullTime
	)

	err := scan(
		&sale.ID, &sale.CustomerID, &sale.SellerID,
		&sale.GrossTotal, &sale.DiscountTotal, &sale.NetTotal,
		&sale.PaymentMethod, &sale.Status, &sale.HasRegulatedItem, &sale.PrescriptionArchived,
		&prescriptionNumber, &prescriptionDate, &patientName, &patientDocument,
		&patientDocType, &patientAddress, &docKey,
		&sale.AssistedSale, &justification, &notes,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sale.PrescriptionDocKey = docKey.String
	sale.Justification = justification.String
	sale.Notes = notes.String

	if sale.HasRegulatedItem {
		sale.Prescription = &domain.PrescriptionInfo{
			Number:          prescriptionNumber.String,
			PatientName:     patientName.String,
			PatientDocument: patientDocument.String,
			PatientDocType:  domain.DocumentType(patientDocType.String),
			PatientAddress:  patientAddress.String,
		}
		if prescriptionDate.Valid {
			sale.Prescription.Date = prescriptionDate.Time
		}
	}

	return sale, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
