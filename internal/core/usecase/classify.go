package usecase

import (
	"regexp"
	"strings"
)

// Quotation documents share the order layout but carry a pricing table.
// All three markers must be present for a document to be classified as
// a quotation.
const (
	quotationDaysHeader = "qtde dias"
	quotationUnitHeader = "valor unit"
	quotationTotalLabel = "valor total"

	financialValueLabel = "valor"
	currencySymbol      = "R$"
	currencyWord        = "reais"
)

// orderAnchorRe matches the "Orçamento: <digits> … Local" anchor that
// gates acceptance of a document as a service order. The digits and the
// location marker may be separated by arbitrary text.
var orderAnchorRe = regexp.MustCompile(`(?is)or[çc]amento\s*:?\s*(\d+).*?local`)

// Classifier decides whether a document is a confirmed service order or
// a financial quotation that must be kept out of the index.
type Classifier struct{}

// IsQuotation reports whether text carries the full quotation table:
// a days column, a unit price column and a total value label. Absence
// of any one marker means the document is not a quotation.
func (Classifier) IsQuotation(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, quotationDaysHeader) &&
		strings.Contains(lower, quotationUnitHeader) &&
		strings.Contains(lower, quotationTotalLabel)
}

// HasFinancialData reports whether text mentions a value label together
// with a currency marker. The currency symbol is matched case-sensitively.
func (Classifier) HasFinancialData(text string) bool {
	if !strings.Contains(strings.ToLower(text), financialValueLabel) {
		return false
	}
	return strings.Contains(text, currencySymbol) ||
		strings.Contains(strings.ToLower(text), currencyWord)
}

// FindOrderAnchor returns the digit run captured by the order anchor
// pattern, unvalidated.
func (Classifier) FindOrderAnchor(text string) (string, bool) {
	m := orderAnchorRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
