// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents accepted payment methods
type PaymentMethod string

// Payment method constants
const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentPix          PaymentMethod = "PIX"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentStoreCredit  PaymentMethod = "STORE_CREDIT"
	PaymentBoleto       PaymentMethod = "BOLETO"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPix,
		PaymentBankTransfer, PaymentStoreCredit, PaymentBoleto:
		return true
	}
	return false
}

// PaymentStatus represents the sale lifecycle state
type PaymentStatus string

// Lifecycle states. PAID and CANCELLED are terminal.
const (
	StatusPending   PaymentStatus = "PENDING"
	StatusPaid      PaymentStatus = "PAID"
	StatusCancelled PaymentStatus = "CANCELLED"
)

// saleTransitions is the single transition table for the sale lifecycle.
// Anything not listed here is an illegal transition.
var saleTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {},
	StatusCancelled: {},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range saleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DocumentType identifies the kind of identity document captured for
// regulated sales.
type DocumentType string

// Accepted document types
const (
	DocumentCPF      DocumentType = "CPF"
	DocumentRG       DocumentType = "RG"
	DocumentCNH      DocumentType = "CNH"
	DocumentPassport DocumentType = "PASSPORT"
)

// PrescriptionInfo holds the regulatory capture fields persisted with a sale
// that contains at least one regulated item.
type PrescriptionInfo struct {
	Number          string       `json:"number"`
	Date            time.Time    `json:"date"`
	PatientName     string       `json:"patient_name"`
	PatientDocument string       `json:"patient_document"`
	PatientDocType  DocumentType `json:"patient_doc_type"`
	PatientAddress  string       `json:"patient_address"`
}

// Sale is the aggregate root of one retail transaction. Items, totals and the
// corresponding OUT movements are created together in one transaction.
type Sale struct {
	ID                   uuid.UUID         `json:"id"`
	CustomerID           *uuid.UUID        `json:"customer_id,omitempty"`
	SellerID             uuid.UUID         `json:"seller_id"`
	GrossTotal           decimal.Decimal   `json:"gross_total"`
	DiscountTotal        decimal.Decimal   `json:"discount_total"`
	NetTotal             decimal.Decimal   `json:"net_total"`
	PaymentMethod        PaymentMethod     `json:"payment_method"`
	Status               PaymentStatus     `json:"status"`
	HasRegulatedItem     bool              `json:"has_regulated_item"`
	PrescriptionArchived bool              `json:"prescription_archived"`
	Prescription         *PrescriptionInfo `json:"prescription,omitempty"`
	PrescriptionDocKey   string            `json:"prescription_doc_key,omitempty"`
	AssistedSale         bool              `json:"assisted_sale"`
	Justification        string            `json:"justification,omitempty"`
	Notes                string            `json:"notes,omitempty"`
	Items                []SaleItem        `json:"items"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// SaleItem is one line of a sale with its computed amounts.
type SaleItem struct {
	ID              uuid.UUID       `json:"id"`
	SaleID          uuid.UUID       `json:"sale_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Total           decimal.Decimal `json:"total"`
}

// Transition moves the sale to a new lifecycle state, failing with a
// StateConflictError when the step is not in the transition table.
func (s *Sale) Transition(to PaymentStatus) error {
	if !CanTransition(s.Status, to) {
		return &StateConflictError{
			Resource: "sale",
			ID:       s.ID.String(),
			Current:  string(s.Status),
			Attempt:  fmt.Sprintf("transition to %s", to),
		}
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	return nil
}

// MarkPrescriptionArchived flags the prescription as archived exactly once.
func (s *Sale) MarkPrescriptionArchived(docKey string) error {
	if !s.HasRegulatedItem {
		return &StateConflictError{
			Resource: "sale",
			ID:       s.ID.String(),
			Current:  "unregulated",
			Attempt:  "archive prescription",
		}
	}
	if s.PrescriptionArchived {
		return &StateConflictError{
			Resource: "sale",
			ID:       s.ID.String(),
			Current:  "prescription already archived",
			Attempt:  "archive prescription",
		}
	}
	s.PrescriptionArchived = true
	s.PrescriptionDocKey = docKey
	s.UpdatedAt = time.Now()
	return nil
}

// PrepareForStorage assigns ids and timestamps before the first insert.
func (s *Sale) PrepareForStorage() {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StatusPending
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
}
