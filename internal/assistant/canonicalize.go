package assistant

import (
	"strings"

	"github.com/dvloznov/zerobalance/internal/domain"
)

// Candidate is a canonicalized add-transaction payload that has not been
// validated yet. Amount stays a pointer so "missing" differs from zero.
type Candidate struct {
	UserID      string
	Description string
	Amount      *float64
	Date        string
	CategoryID  string
	Type        domain.TransactionType
}

// Canonicalize resolves the category and type of a draft against the
// reference data. It never fails; userId, description, amount and date are
// passed through for the validator to judge.
func Canonicalize(d LooseDraft, ref *ReferenceData) Candidate {
	return Candidate{
		UserID:      deref(d.UserID),
		Description: deref(d.Description),
		Amount:      d.Amount,
		Date:        deref(d.Date),
		CategoryID:  resolveCategoryID(d.CategoryName, ref),
		Type:        resolveType(d.Type),
	}
}

func resolveCategoryID(name *string, ref *ReferenceData) string {
	if name == nil || strings.TrimSpace(*name) == "" {
		return ref.DefaultCategoryID()
	}
	if id, ok := ref.LookupCategory(*name); ok {
		return id
	}
	return ref.DefaultCategoryID()
}

func resolveType(t *string) domain.TransactionType {
	if t == nil || *t == "" {
		return domain.TypeExpense
	}
	return domain.TransactionType(*t)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
