// test/benchmarks/sale_bench_test.go
package benchmarks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/farmapos/farmapos-be/internal/core/domain"
)

func BenchmarkComputePricing(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		lines := buildPricingLines(n)
		b.Run(benchLabel(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = domain.ComputePricing(lines)
			}
		})
	}
}

func BenchmarkCheckCompliance(b *testing.B) {
	now := time.Now()

	b.Run("valid", func(b *testing.B) {
		in := buildComplianceInput(now)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = domain.CheckCompliance(in, 30, now)
		}
	})

	b.Run("all_violations", func(b *testing.B) {
		in := domain.ComplianceInput{}
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = domain.CheckCompliance(in, 30, now)
		}
	})

	// The CPF mod-11 check dominates the document path.
	b.Run("cpf_only", func(b *testing.B) {
		in := buildComplianceInput(now)
		in.CustomerLinked = true
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = domain.CheckCompliance(in, 30, now)
		}
	})
}

func BenchmarkSaleSerialization(b *testing.B) {
	for _, n := range []int{1, 10, 50} {
		sale := buildSale(n)
		b.Run(benchLabel(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = json.Marshal(sale)
			}
		})
	}
}

func BenchmarkSalePrepareForStorage(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sale := buildSale(10)
		sale.ID = uuid.Nil
		for j := range sale.Items {
			sale.Items[j].ID = uuid.Nil
		}
		sale.PrepareForStorage()
	}
}
