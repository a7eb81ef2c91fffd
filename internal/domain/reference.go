package domain

// ReferenceEntity is a caller-supplied {id, name} pair. Users (roommates)
// and categories share this shape.
type ReferenceEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a roommate who can pay for or receive a transaction.
type User = ReferenceEntity

// Category is a spending or income bucket.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Ref returns the category as a reference entity.
func (c Category) Ref() ReferenceEntity {
	return ReferenceEntity{ID: c.ID, Name: c.Name}
}

// CategoryRefs converts categories to reference entities, preserving order.
func CategoryRefs(cats []Category) []ReferenceEntity {
	refs := make([]ReferenceEntity, 0, len(cats))
	for _, c := range cats {
		refs = append(refs, c.Ref())
	}
	return refs
}
