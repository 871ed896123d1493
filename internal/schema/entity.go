package schema

import (
	"strings"
	"time"
)

// Entity is a user-defined record category. Records of an entity carry no
// inline columns; all typed data lives in values keyed by (record, field).
type Entity struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Label        string    `json:"label"`
	Icon         string    `json:"icon,omitempty"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Fields       []Field   `json:"fields,omitempty"`
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a field with the given name.
func (e *Entity) HasField(name string) bool {
	return e.GetField(name) != nil
}

// FieldNames returns all field names.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// ActiveFields returns the entity's active fields in display order.
func (e *Entity) ActiveFields() []Field {
	var fields []Field
	for _, f := range e.Fields {
		if f.Active {
			fields = append(fields, f)
		}
	}
	return fields
}

// Slugify normalizes a raw slug: lowercased, spaces and underscores become
// hyphens, anything outside [a-z0-9-] is dropped.
func Slugify(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}
