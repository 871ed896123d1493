package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType is the closed set of value types a field may hold.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeBoolean  FieldType = "boolean"
	TypeSelect   FieldType = "select"
	TypeRelation FieldType = "relation"
)

// FieldTypes lists all valid field types.
var FieldTypes = []FieldType{TypeText, TypeNumber, TypeDate, TypeBoolean, TypeSelect, TypeRelation}

// ValidFieldType reports whether t is a known field type.
func ValidFieldType(t FieldType) bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// FieldOptions carries the per-type option set for a field.
// Only the slot matching the field's type is meaningful:
// Choices for select fields, Entity for relation fields.
type FieldOptions struct {
	Choices []string `json:"choices,omitempty"`
	Entity  string   `json:"entity,omitempty"`
}

// Validate checks the options against the field type.
func (o FieldOptions) Validate(t FieldType) error {
	switch t {
	case TypeSelect:
		if len(o.Choices) == 0 {
			return fmt.Errorf("%w: select field needs at least one choice", ErrInvalidInput)
		}
	case TypeRelation:
		if o.Entity == "" {
			return fmt.Errorf("%w: relation field needs a target entity", ErrInvalidInput)
		}
	default:
		if len(o.Choices) > 0 || o.Entity != "" {
			return fmt.Errorf("%w: options are only valid for select and relation fields", ErrInvalidInput)
		}
	}
	return nil
}

// Field is a typed attribute definition belonging to one entity.
type Field struct {
	ID           string       `json:"id"`
	EntityID     string       `json:"entity_id"`
	Name         string       `json:"name"`
	Label        string       `json:"label"`
	Type         FieldType    `json:"type"`
	Options      FieldOptions `json:"options"`
	Rule         string       `json:"rule,omitempty"`
	Required     bool         `json:"required"`
	Unique       bool         `json:"unique"`
	ShowInList   bool         `json:"show_in_list"`
	ShowInForm   bool         `json:"show_in_form"`
	DisplayOrder int          `json:"display_order"`
	DefaultValue string       `json:"default_value,omitempty"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts a raw input value to the typed representation required by t.
//
// Rules: number and date reject unparseable input; boolean normalizes
// truthy/falsy and never fails; text, select and relation pass through as
// strings, with empty input stored as the empty string.
func Coerce(t FieldType, raw any) (any, error) {
	switch t {
	case TypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", v)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("%v is not a number", raw)
		}

	case TypeDate:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			s := strings.TrimSpace(v)
			for _, layout := range dateLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("%q is not a date", v)
		default:
			return nil, fmt.Errorf("%v is not a date", raw)
		}

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			s := strings.ToLower(strings.TrimSpace(v))
			return s == "true" || s == "1" || s == "on", nil
		case float64:
			return v != 0, nil
		case int:
			return v != 0, nil
		case int64:
			return v != 0, nil
		default:
			return false, nil
		}

	default: // text, select, relation
		if raw == nil {
			return "", nil
		}
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		default:
			return fmt.Sprintf("%v", v), nil
		}
	}
}

// Coerce applies the field's type coercion to a raw value.
func (f *Field) Coerce(raw any) (any, error) {
	return Coerce(f.Type, raw)
}
