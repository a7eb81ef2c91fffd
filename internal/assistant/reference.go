package assistant

import (
	"strings"

	"github.com/dvloznov/zerobalance/internal/domain"
)

// FallbackCategoryID is used as the default category when the caller
// supplies no categories at all.
const FallbackCategoryID = "other"

// defaultCategoryName is the name that marks the preferred default category.
const defaultCategoryName = "other"

// defaultStrategy picks a default category id from the supplied list.
// It returns false when it cannot decide.
type defaultStrategy func(categories []domain.ReferenceEntity) (string, bool)

// defaultCategoryChain is evaluated in order; the first strategy that
// decides wins.
var defaultCategoryChain = []defaultStrategy{
	namedDefault,
	firstAvailable,
	literalFallback,
}

// namedDefault selects the category called "Other" (any case).
func namedDefault(categories []domain.ReferenceEntity) (string, bool) {
	for _, c := range categories {
		if normalizeName(c.Name) == defaultCategoryName {
			return c.ID, true
		}
	}
	return "", false
}

// firstAvailable selects the first supplied category.
func firstAvailable(categories []domain.ReferenceEntity) (string, bool) {
	if len(categories) == 0 {
		return "", false
	}
	return categories[0].ID, true
}

func literalFallback([]domain.ReferenceEntity) (string, bool) {
	return FallbackCategoryID, true
}

// DefaultCategoryID runs the default-category chain over categories.
func DefaultCategoryID(categories []domain.ReferenceEntity) string {
	for _, strategy := range defaultCategoryChain {
		if id, ok := strategy(categories); ok {
			return id
		}
	}
	return FallbackCategoryID
}

// ReferenceData is the per-call lookup view over the caller's users and
// categories. It is built fresh for every resolution and never mutated.
type ReferenceData struct {
	Users      []domain.ReferenceEntity
	Categories []domain.ReferenceEntity

	categoryIndex     map[string]string // normalized name -> id
	defaultCategoryID string
}

// NewReferenceData indexes categories by normalized name and computes the
// default category. Among categories sharing a normalized name the first
// one wins.
func NewReferenceData(users, categories []domain.ReferenceEntity) *ReferenceData {
	index := make(map[string]string, len(categories))
	for _, c := range categories {
		key := normalizeName(c.Name)
		if _, exists := index[key]; !exists {
			index[key] = c.ID
		}
	}

	return &ReferenceData{
		Users:             users,
		Categories:        categories,
		categoryIndex:     index,
		defaultCategoryID: DefaultCategoryID(categories),
	}
}

// LookupCategory returns the id of the category whose name equals name,
// ignoring case and surrounding whitespace. No partial matching.
func (r *ReferenceData) LookupCategory(name string) (string, bool) {
	id, ok := r.categoryIndex[normalizeName(name)]
	return id, ok
}

// DefaultCategoryID returns the category used when nothing matches.
func (r *ReferenceData) DefaultCategoryID() string {
	return r.defaultCategoryID
}

// HasUser reports whether id is one of the supplied user ids.
func (r *ReferenceData) HasUser(id string) bool {
	return hasID(r.Users, id)
}

// HasCategory reports whether id is one of the supplied category ids. The
// literal fallback id is not one unless the caller supplied it.
func (r *ReferenceData) HasCategory(id string) bool {
	return hasID(r.Categories, id)
}

func hasID(refs []domain.ReferenceEntity, id string) bool {
	for _, e := range refs {
		if e.ID == id {
			return true
		}
	}
	return false
}

// normalizeName normalizes a reference name for comparison.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
