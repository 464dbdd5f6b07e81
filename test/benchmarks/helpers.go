// test/benchmarks/helpers.go
package benchmarks

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

// buildPricingLines generates n priced lines with varied discounts so the
// per-line rounding path is exercised.
func buildPricingLines(n int) []domain.PricingLine {
	lines := make([]domain.PricingLine, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, domain.PricingLine{
			Quantity:        1 + i%5,
			UnitPrice:       decimal.NewFromFloat(4.99 + float64(i%20)),
			DiscountPercent: decimal.NewFromInt(int64(i % 15)),
		})
	}
	return lines
}

// buildComplianceInput returns a fully valid regulated-sale capture.
func buildComplianceInput(now time.Time) domain.ComplianceInput {
	issued := now.AddDate(0, 0, -5)
	return domain.ComplianceInput{
		SellerIsPharmacist: true,
		PrescriptionNumber: "CRM-12345/SP",
		PrescriptionDate:   &issued,
		PatientName:        "Maria Souza",
		PatientDocument:    "529.982.247-25",
		PatientDocType:     domain.DocumentCPF,
		PatientAddress:     "Rua das Flores, 123 - Centro",
		BuyerName:          "Joao Souza",
		BuyerDocument:      "529.982.247-25",
		BuyerDocType:       domain.DocumentCPF,
	}
}

// buildSaleItems generates items spread across nProducts distinct products.
func buildSaleItems(n, nProducts int) []domain.SaleItem {
	productIDs := make([]uuid.UUID, nProducts)
	for i := range productIDs {
		productIDs[i] = uuid.New()
	}

	items := make([]domain.SaleItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.SaleItem{
			ID:        uuid.New(),
			ProductID: productIDs[i%nProducts],
			Quantity:  1 + i%3,
			UnitPrice: decimal.NewFromFloat(9.90),
		})
	}
	return items
}

func buildSale(items int) *domain.Sale {
	sale := &domain.Sale{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		PaymentMethod: domain.PaymentPix,
		Status:        domain.StatusPending,
		Items:         buildSaleItems(items, items),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	sale.NetTotal = decimal.NewFromFloat(9.90).Mul(decimal.NewFromInt(int64(items)))
	sale.GrossTotal = sale.NetTotal
	return sale
}

func benchLabel(n int) string {
	return fmt.Sprintf("items_%d", n)
}
