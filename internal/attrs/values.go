// Package attrs implements the typed attribute store: per-record values
// keyed by (record, field), written through race-safe upserts and read back
// as materialized field-name maps.
package attrs

import (
	"context"
	"fmt"
	"strings"

	"shopdesk-backend/internal/schema"
)

// Attribute is one materialized field value. Label and type ride along so
// consumers can render without a second schema lookup.
type Attribute struct {
	Value   any              `json:"value"`
	FieldID string           `json:"field_id"`
	Label   string           `json:"label"`
	Type    schema.FieldType `json:"type"`
}

// ValueStore is the shared surface of the typed attribute store and the
// text-only custom field overlay. `kind` is an entity slug for the typed
// store and a fixed built-in kind ("shop", "license") for the overlay.
type ValueStore interface {
	GetValues(ctx context.Context, kind, recordID string) (map[string]Attribute, error)
	SetValues(ctx context.Context, kind, recordID string, values map[string]any) error
	DeleteValues(ctx context.Context, kind, recordID string) error
}

// CoercionError reports a single field whose raw value could not be
// converted to its declared type or failed its validation rule.
type CoercionError struct {
	Field  string           `json:"field"`
	Type   schema.FieldType `json:"type"`
	Reason string           `json:"reason"`
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %s (%s): %s", e.Field, e.Type, e.Reason)
}

// FieldErrors aggregates per-field failures from one SetValues call.
// Fields not listed here were persisted; the batch is never rolled back.
type FieldErrors []*CoercionError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "value errors: " + strings.Join(msgs, "; ")
}
