// internal/core/domain/compliance_test.go
package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// validComplianceInput builds an input that passes every rule; individual
// tests break one field at a time.
func validComplianceInput(now time.Time) domain.ComplianceInput {
	issued := now.AddDate(0, 0, -5)
	return domain.ComplianceInput{
		CustomerLinked:     false,
		SellerIsPharmacist: true,

		PrescriptionNumber: "CRM-12345/SP",
		PrescriptionDate:   &issued,

		PatientName:     "Maria Souza",
		PatientDocument: "529.982.247-25",
		PatientDocType:  domain.DocumentCPF,
		PatientAddress:  "Rua das Flores, 123 - Centro",

		BuyerName:     "Joao Souza",
		BuyerDocument: "529.982.247-25",
		BuyerDocType:  domain.DocumentCPF,
	}
}

func TestCheckCompliance_Valid(t *testing.T) {
	now := time.Now()
	violations := domain.CheckCompliance(validComplianceInput(now), 30, now)
	assert.Empty(t, violations)
}

func TestCheckCompliance_PrescriptionNumber(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		number    string
		violation string
	}{
		{"missing", "", "prescription number is required"},
		{"too short", "AB", "prescription number must be between 3 and 50 characters"},
		{"invalid characters", "RX 123!", "prescription number may only contain letters, digits, '-' and '/'"},
		{"numeric too few digits", "12345", "numeric prescription numbers must have at least 6 digits"},
		{"separators only", "--/", "prescription number must contain at least one alphanumeric character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validComplianceInput(now)
			in.PrescriptionNumber = tt.number
			violations := domain.CheckCompliance(in, 30, now)
			assert.Contains(t, violations, tt.violation)
		})
	}

	t.Run("numeric with six digits passes", func(t *testing.T) {
		in := validComplianceInput(now)
		in.PrescriptionNumber = "123456"
		assert.Empty(t, domain.CheckCompliance(in, 30, now))
	})
}

func TestCheckCompliance_PrescriptionDate(t *testing.T) {
	now := time.Now()

	t.Run("missing", func(t *testing.T) {
		in := validComplianceInput(now)
		in.PrescriptionDate = nil
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "prescription date is required")
	})

	t.Run("future", func(t *testing.T) {
		in := validComplianceInput(now)
		future := now.Add(24 * time.Hour)
		in.PrescriptionDate = &future
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "prescription date cannot be in the future")
	})

	t.Run("expired", func(t *testing.T) {
		in := validComplianceInput(now)
		old := now.AddDate(0, 0, -31)
		in.PrescriptionDate = &old
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "prescription is older than 30 days")
	})

	t.Run("custom validity window", func(t *testing.T) {
		in := validComplianceInput(now)
		old := now.AddDate(0, 0, -20)
		in.PrescriptionDate = &old
		violations := domain.CheckCompliance(in, 15, now)
		assert.Contains(t, violations, "prescription is older than 15 days")
	})

	t.Run("zero validity falls back to default", func(t *testing.T) {
		in := validComplianceInput(now)
		old := now.AddDate(0, 0, -20)
		in.PrescriptionDate = &old
		assert.Empty(t, domain.CheckCompliance(in, 0, now))
	})
}

func TestCheckCompliance_Documents(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		document string
		docType  domain.DocumentType
		wantOK   bool
	}{
		{"valid CPF punctuated", "529.982.247-25", domain.DocumentCPF, true},
		{"valid CPF bare", "52998224725", domain.DocumentCPF, true},
		{"CPF bad check digit", "529.982.247-26", domain.DocumentCPF, false},
		{"CPF all same digits", "111.111.111-11", domain.DocumentCPF, false},
		{"CPF too short", "1234567890", domain.DocumentCPF, false},
		{"valid RG", "12.345.678-9", domain.DocumentRG, true},
		{"valid RG with X", "12345678X", domain.DocumentRG, true},
		{"RG too short", "1234", domain.DocumentRG, false},
		{"RG with letters", "12AB5678", domain.DocumentRG, false},
		{"valid CNH", "12345678901", domain.DocumentCNH, true},
		{"CNH wrong length", "123456789", domain.DocumentCNH, false},
		{"valid passport", "BR123456", domain.DocumentPassport, true},
		{"passport starts with digit", "1R123456", domain.DocumentPassport, false},
		{"passport too short", "BR123", domain.DocumentPassport, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validComplianceInput(now)
			in.PatientDocument = tt.document
			in.PatientDocType = tt.docType
			violations := domain.CheckCompliance(in, 30, now)
			if tt.wantOK {
				assert.Empty(t, violations)
			} else {
				assert.Contains(t, violations,
					fmt.Sprintf("patient document is not a valid %s", docTypeLabel(tt.docType)))
			}
		})
	}

	t.Run("missing document", func(t *testing.T) {
		in := validComplianceInput(now)
		in.PatientDocument = ""
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "patient document number is required")
	})

	t.Run("unknown document type", func(t *testing.T) {
		in := validComplianceInput(now)
		in.PatientDocType = domain.DocumentType("VOTER_ID")
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "patient document type must be one of CPF, RG, CNH, PASSPORT")
	})
}

func docTypeLabel(dt domain.DocumentType) string {
	switch dt {
	case domain.DocumentCPF:
		return "CPF"
	case domain.DocumentRG:
		return "RG"
	case domain.DocumentCNH:
		return "CNH"
	default:
		return "passport number"
	}
}

func TestCheckCompliance_BuyerCapture(t *testing.T) {
	now := time.Now()

	t.Run("required when no customer linked", func(t *testing.T) {
		in := validComplianceInput(now)
		in.CustomerLinked = false
		in.BuyerName = ""
		in.BuyerDocument = ""
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "buyer name is required when no customer is linked")
		assert.Contains(t, violations, "buyer document number is required")
	})

	t.Run("skipped when customer linked", func(t *testing.T) {
		in := validComplianceInput(now)
		in.CustomerLinked = true
		in.BuyerName = ""
		in.BuyerDocument = ""
		assert.Empty(t, domain.CheckCompliance(in, 30, now))
	})
}

func TestCheckCompliance_AssistedSale(t *testing.T) {
	now := time.Now()

	t.Run("non-pharmacist needs justification", func(t *testing.T) {
		in := validComplianceInput(now)
		in.AssistedSale = true
		in.SellerIsPharmacist = false
		in.Justification = "too short"
		violations := domain.CheckCompliance(in, 30, now)
		assert.Contains(t, violations, "assisted sale justification is required (at least 10 characters)")
	})

	t.Run("justification satisfies", func(t *testing.T) {
		in := validComplianceInput(now)
		in.AssistedSale = true
		in.SellerIsPharmacist = false
		in.Justification = "pharmacist unavailable, authorized by phone"
		assert.Empty(t, domain.CheckCompliance(in, 30, now))
	})

	t.Run("pharmacist needs none", func(t *testing.T) {
		in := validComplianceInput(now)
		in.AssistedSale = true
		in.SellerIsPharmacist = true
		in.Justification = ""
		assert.Empty(t, domain.CheckCompliance(in, 30, now))
	})
}

func TestCheckCompliance_CollectsAllViolations(t *testing.T) {
	now := time.Now()
	in := domain.ComplianceInput{}
	violations := domain.CheckCompliance(in, 30, now)

	assert.Contains(t, violations, "prescription number is required")
	assert.Contains(t, violations, "prescription date is required")
	assert.Contains(t, violations, "patient name is required (at least 2 characters)")
	assert.Contains(t, violations, "patient document number is required")
	assert.Contains(t, violations, "patient address is required (at least 10 characters)")
	assert.Contains(t, violations, "buyer name is required when no customer is linked")
	assert.GreaterOrEqual(t, len(violations), 6)
}
