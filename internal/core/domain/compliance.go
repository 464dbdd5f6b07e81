// internal/core/domain/compliance.go
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultPrescriptionValidityDays is the regulatory window a prescription
// stays usable after its issue date.
const DefaultPrescriptionValidityDays = 30

// ComplianceInput is everything the validator needs about one sale attempt.
// It is assembled by the service from the request and the loaded products;
// the validator itself performs no I/O.
type ComplianceInput struct {
	CustomerLinked     bool
	SellerIsPharmacist bool
	AssistedSale       bool
	Justification      string

	PrescriptionNumber string
	PrescriptionDate   *time.Time

	PatientName     string
	PatientDocument string
	PatientDocType  DocumentType
	PatientAddress  string

	BuyerName     string
	BuyerDocument string
	BuyerDocType  DocumentType
}

// CheckCompliance returns the complete set of violations for a sale that
// contains at least one regulated item. An empty slice means the capture is
// valid. Callers with zero regulated items must not call this at all.
func CheckCompliance(in ComplianceInput, validityDays int, now time.Time) []string {
	if validityDays <= 0 {
		validityDays = DefaultPrescriptionValidityDays
	}

	var violations []string

	violations = append(violations, checkPrescriptionNumber(in.PrescriptionNumber)...)
	violations = append(violations, checkPrescriptionDate(in.PrescriptionDate, validityDays, now)...)

	if len(strings.TrimSpace(in.PatientName)) < 2 {
		violations = append(violations, "patient name is required (at least 2 characters)")
	}
	violations = append(violations, checkDocument("patient", in.PatientDocument, in.PatientDocType)...)
	if len(strings.TrimSpace(in.PatientAddress)) < 10 {
		violations = append(violations, "patient address is required (at least 10 characters)")
	}

	// Without a linked customer record the buyer's own identity must also be
	// captured, under the same document rules.
	if !in.CustomerLinked {
		if len(strings.TrimSpace(in.BuyerName)) < 2 {
			violations = append(violations, "buyer name is required when no customer is linked")
		}
		violations = append(violations, checkDocument("buyer", in.BuyerDocument, in.BuyerDocType)...)
	}

	// Assisted sale: a written justification substitutes for pharmacist
	// clearance. A deliberate policy exception for small outlets.
	if in.AssistedSale && !in.SellerIsPharmacist {
		if len(strings.TrimSpace(in.Justification)) < 10 {
			violations = append(violations, "assisted sale justification is required (at least 10 characters)")
		}
	}

	return violations
}

func checkPrescriptionNumber(number string) []string {
	number = strings.TrimSpace(number)
	if number == "" {
		return []string{"prescription number is required"}
	}

	var violations []string
	if len(number) < 3 || len(number) > 50 {
		violations = append(violations, "prescription number must be between 3 and 50 characters")
	}

	digits, letters := 0, 0
	for _, r := range number {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case r == '-' || r == '/':
		default:
			violations = append(violations, "prescription number may only contain letters, digits, '-' and '/'")
			return violations
		}
	}
	if digits+letters == 0 {
		violations = append(violations, "prescription number must contain at least one alphanumeric character")
	}
	if letters == 0 && digits > 0 && digits < 6 {
		violations = append(violations, "numeric prescription numbers must have at least 6 digits")
	}
	return violations
}

func checkPrescriptionDate(date *time.Time, validityDays int, now time.Time) []string {
	if date == nil || date.IsZero() {
		return []string{"prescription date is required"}
	}
	if date.After(now) {
		return []string{"prescription date cannot be in the future"}
	}
	if now.Sub(*date) > time.Duration(validityDays)*24*time.Hour {
		return []string{fmt.Sprintf("prescription is older than %d days", validityDays)}
	}
	return nil
}

func checkDocument(who, document string, docType DocumentType) []string {
	document = strings.TrimSpace(document)
	if document == "" {
		return []string{fmt.Sprintf("%s document number is required", who)}
	}

	switch docType {
	case DocumentCPF:
		if !validCPF(document) {
			return []string{fmt.Sprintf("%s document is not a valid CPF", who)}
		}
	case DocumentRG:
		if !validRG(document) {
			return []string{fmt.Sprintf("%s document is not a valid RG", who)}
		}
	case DocumentCNH:
		if !validCNH(document) {
			return []string{fmt.Sprintf("%s document is not a valid CNH", who)}
		}
	case DocumentPassport:
		if !validPassport(document) {
			return []string{fmt.Sprintf("%s document is not a valid passport number", who)}
		}
	default:
		return []string{fmt.Sprintf("%s document type must be one of CPF, RG, CNH, PASSPORT", who)}
	}
	return nil
}

// validCPF runs the standard mod-11 check-digit algorithm over an 11-digit
// CPF, accepting the usual 000.000.000-00 punctuation.
func validCPF(document string) bool {
	digits := keepDigits(document)
	if len(digits) != 11 {
		return false
	}
	// All-same-digit CPFs pass the checksum but are invalid.
	same := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	return cpfCheckDigit(digits, 9) == int(digits[9]-'0') &&
		cpfCheckDigit(digits, 10) == int(digits[10]-'0')
}

func cpfCheckDigit(digits string, length int) int {
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * (length + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// validRG accepts 5 to 14 digits with an optional trailing check character X.
func validRG(document string) bool {
	cleaned := strings.ToUpper(keepAlphanumeric(document))
	if cleaned == "" {
		return false
	}
	body := cleaned
	if strings.HasSuffix(cleaned, "X") {
		body = cleaned[:len(cleaned)-1]
	}
	if len(body) < 5 || len(body) > 14 {
		return false
	}
	for _, r := range body {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// validCNH accepts the 11-digit national driver's license register.
func validCNH(document string) bool {
	digits := keepDigits(document)
	return len(digits) == 11
}

// validPassport accepts 6 to 12 alphanumerics starting with a letter.
func validPassport(document string) bool {
	cleaned := keepAlphanumeric(document)
	if len(cleaned) < 6 || len(cleaned) > 12 {
		return false
	}
	return unicode.IsLetter(rune(cleaned[0]))
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
