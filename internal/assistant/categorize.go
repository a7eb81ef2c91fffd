package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/zerobalance/internal/domain"
)

// CategorySuggestion is the model's guess for a transaction description.
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the suggestion is usable.
func (s CategorySuggestion) Validate() error {
	if strings.TrimSpace(s.Category) == "" {
		return fmt.Errorf("category: must not be empty")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence: %v out of range [0, 1]", s.Confidence)
	}
	return nil
}

// Categorizer suggests a category for a free-text description.
type Categorizer struct {
	gen TextGenerator
}

// NewCategorizer creates a categorizer over gen.
func NewCategorizer(gen TextGenerator) *Categorizer {
	return &Categorizer{gen: gen}
}

// Suggest asks the model for a category. categories, when non-empty, are
// offered to the model as preferred names.
func (c *Categorizer) Suggest(ctx context.Context, description string, categories []domain.ReferenceEntity) (CategorySuggestion, error) {
	if strings.TrimSpace(description) == "" {
		return CategorySuggestion{}, fmt.Errorf("Suggest: description is required")
	}

	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}

	raw, err := c.gen.GenerateJSON(ctx, categorizeSystemPrompt, buildCategorizePrompt(description, names), categorySuggestionSchema())
	if err != nil {
		return CategorySuggestion{}, fmt.Errorf("Suggest: %w", err)
	}
	if raw == "" {
		return CategorySuggestion{}, fmt.Errorf("Suggest: empty response from model")
	}

	var s CategorySuggestion
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &s); err != nil {
		return CategorySuggestion{}, fmt.Errorf("Suggest: unmarshal JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return CategorySuggestion{}, fmt.Errorf("Suggest: %w", err)
	}
	return s, nil
}

// MatchSuggestion maps a suggestion onto the caller's categories using the
// same exact-match-then-default chain as chat resolution.
func MatchSuggestion(s CategorySuggestion, categories []domain.ReferenceEntity) (id string, matched bool) {
	ref := NewReferenceData(nil, categories)
	if id, ok := ref.LookupCategory(s.Category); ok {
		return id, true
	}
	return ref.DefaultCategoryID(), false
}
