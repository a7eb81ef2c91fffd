package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
)

const (
	minDescriptionLen = 2
	isoDateLen        = len("2006-01-02")
)

// FieldError describes one rule a field broke.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every broken rule of a payload, in field order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsCalendarDate reports whether s is a real calendar date written as
// YYYY-MM-DD. 2023-02-30 is rejected.
func IsCalendarDate(s string) bool {
	if len(s) != isoDateLen {
		return false
	}
	d, err := civil.ParseDate(s)
	return err == nil && d.IsValid()
}

// ValidateCandidate checks a canonicalized payload against the business
// rules. The returned error, if any, is a *ValidationError.
func ValidateCandidate(c Candidate) (domain.AddTransaction, error) {
	verr := &ValidationError{}

	if c.UserID == "" {
		verr.add("userId", "must not be empty")
	}
	if len([]rune(c.Description)) < minDescriptionLen {
		verr.add("description", "must be at least %d characters", minDescriptionLen)
	}
	switch {
	case c.Amount == nil:
		verr.add("amount", "required")
	case math.IsNaN(*c.Amount) || math.IsInf(*c.Amount, 0):
		verr.add("amount", "must be a finite number")
	case *c.Amount <= 0:
		verr.add("amount", "must be greater than 0")
	}
	if !IsCalendarDate(c.Date) {
		verr.add("date", "invalid date %q, expected YYYY-MM-DD", c.Date)
	}
	if c.CategoryID == "" {
		verr.add("categoryId", "must not be empty")
	}
	if !c.Type.Valid() {
		verr.add("type", "invalid value %q, expected income or expense", c.Type)
	}

	if err := verr.orNil(); err != nil {
		return domain.AddTransaction{}, err
	}

	return domain.AddTransaction{
		UserID:      c.UserID,
		Description: c.Description,
		Amount:      *c.Amount,
		Date:        c.Date,
		CategoryID:  c.CategoryID,
		Type:        c.Type,
	}, nil
}

// MissingFields returns the user-facing names of the checklist fields that
// are missing or unusable, always in the order who paid, description,
// amount, date.
func MissingFields(c Candidate) []string {
	var missing []string
	if c.UserID == "" {
		missing = append(missing, "who paid")
	}
	if c.Description == "" {
		missing = append(missing, "description")
	}
	if c.Amount == nil || *c.Amount <= 0 || math.IsNaN(*c.Amount) {
		missing = append(missing, "amount")
	}
	if c.Date == "" || !IsCalendarDate(c.Date) {
		missing = append(missing, "date")
	}
	return missing
}

// ClarifyMissing builds the question asking the user for missing fields.
func ClarifyMissing(missing []string) domain.Clarify {
	return domain.Clarify{
		ClarificationNeeded: fmt.Sprintf(
			"I'm missing some details for the transaction: %s. Could you please provide them?",
			strings.Join(missing, ", "),
		),
	}
}

// resolveCandidate validates c and degrades to Clarify or Error on failure.
// Clarify wins whenever a checklist field is at fault.
func resolveCandidate(c Candidate) domain.Action {
	tx, err := ValidateCandidate(c)
	if err == nil {
		return tx
	}
	if missing := MissingFields(c); len(missing) > 0 {
		return ClarifyMissing(missing)
	}
	return domain.Error{
		ErrorMessage: "AI response for adding transaction was not in the expected format. Details: " + err.Error(),
	}
}

// ValidateAction applies the strict shape check to a non-add action chosen
// by the backend.
func ValidateAction(la *LooseAction) (domain.Action, error) {
	kind := domain.ActionKind(la.Action)
	if kind == domain.KindAddTransaction {
		return nil, fmt.Errorf("action: %s must be canonicalized before validation", kind)
	}

	obj, err := paramsObject(la.Params)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	var action domain.Action
	switch kind {
	case domain.KindListTransactions:
		action = domain.ListTransactions{
			Period:   optionalString(obj, "period", verr),
			User:     optionalString(obj, "user", verr),
			Category: optionalString(obj, "category", verr),
		}
	case domain.KindClarify:
		action = domain.Clarify{ClarificationNeeded: requiredString(obj, "clarificationNeeded", verr)}
	case domain.KindInfo:
		action = domain.Info{AIResponse: requiredString(obj, "aiResponse", verr)}
	case domain.KindError:
		action = domain.Error{ErrorMessage: requiredString(obj, "errorMessage", verr)}
	default:
		return nil, fmt.Errorf("action: unknown value %q", la.Action)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return action, nil
}

func requiredString(obj map[string]interface{}, key string, verr *ValidationError) string {
	v, ok := obj[key]
	if !ok {
		verr.add("params."+key, "required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		verr.add("params."+key, "expected string, got %s", jsonTypeName(v))
		return ""
	}
	return s
}

func optionalString(obj map[string]interface{}, key string, verr *ValidationError) *string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		verr.add("params."+key, "expected string, got %s", jsonTypeName(v))
		return nil
	}
	return &s
}

func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
