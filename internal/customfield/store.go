// Package customfield is the lightweight sibling of the attrs store: ad-hoc
// typed attributes for the two fixed built-in entity kinds. Values are
// always persisted as text; the declared type only informs client-side
// rendering. The trade is type fidelity for minimal moving parts.
package customfield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopdesk-backend/internal/attrs"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

const (
	KindShop    = "shop"
	KindLicense = "license"
)

// ErrUnknownKind is returned for an entity kind outside the fixed set.
var ErrUnknownKind = errors.New("unknown entity kind")

// ValidKind reports whether kind is one of the built-in entity kinds.
func ValidKind(kind string) bool {
	return kind == KindShop || kind == KindLicense
}

// Definition is a custom field attached to a built-in entity kind.
type Definition struct {
	ID           string              `json:"id"`
	EntityKind   string              `json:"entity_kind"`
	Name         string              `json:"name"`
	Label        string              `json:"label"`
	Type         schema.FieldType    `json:"type"`
	Options      schema.FieldOptions `json:"options"`
	Required     bool                `json:"required"`
	Active       bool                `json:"active"`
	DisplayOrder int                 `json:"display_order"`
	ShowInTable  bool                `json:"show_in_table"`
	ShowInForm   bool                `json:"show_in_form"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Store owns custom field definitions and their text values.
type Store struct {
	store *store.Store
}

func NewStore(s *store.Store) *Store {
	return &Store{store: s}
}

// AddFieldInput is the payload for AddField.
type AddFieldInput struct {
	Name         string              `json:"name"`
	Label        string              `json:"label"`
	Type         schema.FieldType    `json:"type"`
	Options      schema.FieldOptions `json:"options"`
	Required     bool                `json:"required"`
	DisplayOrder int                 `json:"display_order"`
	HideInTable  bool                `json:"hide_in_table"`
	HideInForm   bool                `json:"hide_in_form"`
}

// AddField defines a custom field for a kind and returns its id.
// Returns ErrDuplicateFieldName when (kind, name) is already taken.
func (s *Store) AddField(ctx context.Context, kind string, in AddFieldInput) (string, error) {
	if !ValidKind(kind) {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if in.Name == "" {
		return "", fmt.Errorf("%w: field name is required", schema.ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = schema.TypeText
	}
	if !schema.ValidFieldType(in.Type) {
		return "", fmt.Errorf("%w: %s", schema.ErrUnknownFieldType, in.Type)
	}

	optJSON, err := json.Marshal(in.Options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}

	id := uuid.NewString()
	d := s.store.Dialect
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`INSERT INTO custom_fields (id, entity_kind, name, label, type, options, required, display_order, show_in_table, show_in_form)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		pb.Add(id), pb.Add(kind), pb.Add(in.Name), pb.Add(in.Label), pb.Add(string(in.Type)),
		pb.Add(string(optJSON)), pb.Add(d.BoolParam(in.Required)), pb.Add(in.DisplayOrder),
		pb.Add(d.BoolParam(!in.HideInTable)), pb.Add(d.BoolParam(!in.HideInForm)),
	)
	if _, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...); err != nil {
		if errors.Is(store.MapError(d, err), store.ErrUniqueViolation) {
			return "", fmt.Errorf("%w: %s", schema.ErrDuplicateFieldName, in.Name)
		}
		return "", fmt.Errorf("add custom field %s/%s: %w", kind, in.Name, err)
	}
	return id, nil
}

// ListFields returns the definitions for a kind in display order.
func (s *Store) ListFields(ctx context.Context, kind string, activeOnly bool) ([]Definition, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	d := s.store.Dialect
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT * FROM custom_fields WHERE entity_kind = %s", pb.Add(kind))
	if activeOnly {
		sqlStr += fmt.Sprintf(" AND active = %s", pb.Add(d.BoolParam(true)))
	}
	sqlStr += " ORDER BY display_order, name"

	rows, err := store.QueryRows(ctx, s.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list custom fields for %s: %w", kind, err)
	}
	defs := make([]Definition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, scanDefinition(row))
	}
	return defs, nil
}

// RemoveField hard-deletes a definition; its values cascade away with it.
func (s *Store) RemoveField(ctx context.Context, id string) error {
	pb := s.store.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.store.DB,
		fmt.Sprintf("DELETE FROM custom_fields WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("remove custom field %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeactivateField hides a definition without touching stored values.
func (s *Store) DeactivateField(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

// ActivateField re-enables a deactivated definition.
func (s *Store) ActivateField(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *Store) setActive(ctx context.Context, id string, active bool) error {
	d := s.store.Dialect
	pb := d.NewParamBuilder()
	n, err := store.Exec(ctx, s.store.DB,
		fmt.Sprintf("UPDATE custom_fields SET active = %s WHERE id = %s",
			pb.Add(d.BoolParam(active)), pb.Add(id)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("set custom field active %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetValue looks up the stored text for one (field, target) pair.
// Returns store.ErrNotFound when nothing is stored.
func (s *Store) GetValue(ctx context.Context, fieldID, targetID string) (string, error) {
	pb := s.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.store.DB,
		fmt.Sprintf("SELECT value FROM custom_field_values WHERE field_id = %s AND entity_id = %s",
			pb.Add(fieldID), pb.Add(targetID)), pb.Params()...)
	if err != nil {
		return "", err
	}
	return asString(row["value"]), nil
}

// GetValues reads each active field's value for a target by direct lookup.
// All values come back as text, whatever the declared type says.
func (s *Store) GetValues(ctx context.Context, kind, targetID string) (map[string]attrs.Attribute, error) {
	if targetID == "" {
		return nil, fmt.Errorf("%w: target id is required", schema.ErrInvalidInput)
	}
	fields, err := s.ListFields(ctx, kind, true)
	if err != nil {
		return nil, err
	}

	result := make(map[string]attrs.Attribute, len(fields))
	for _, f := range fields {
		value, err := s.GetValue(ctx, f.ID, targetID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get custom value %s/%s: %w", kind, f.Name, err)
		}
		result[f.Name] = attrs.Attribute{
			Value:   value,
			FieldID: f.ID,
			Label:   f.Label,
			Type:    f.Type,
		}
	}
	return result, nil
}

// SetValues upserts text-coerced values for each supplied name with a known
// active field. Unknown names are skipped. Upserts are independently atomic
// on UNIQUE(field_id, entity_id), same guarantees as the typed store.
func (s *Store) SetValues(ctx context.Context, kind, targetID string, values map[string]any) error {
	if targetID == "" {
		return fmt.Errorf("%w: target id is required", schema.ErrInvalidInput)
	}
	fields, err := s.ListFields(ctx, kind, true)
	if err != nil {
		return err
	}
	idsByName := make(map[string]string, len(fields))
	for _, f := range fields {
		idsByName[f.Name] = f.ID
	}

	d := s.store.Dialect
	for name, raw := range values {
		fieldID, ok := idsByName[name]
		if !ok {
			continue
		}
		// Text coercion never fails; other declared types are advisory here.
		coerced, _ := schema.Coerce(schema.TypeText, raw)
		text, _ := coerced.(string)

		pb := d.NewParamBuilder()
		sqlStr := fmt.Sprintf(
			`INSERT INTO custom_field_values (id, field_id, entity_id, value)
			 VALUES (%s, %s, %s, %s)
			 ON CONFLICT (field_id, entity_id) DO UPDATE SET value = excluded.value, updated_at = %s`,
			pb.Add(uuid.NewString()), pb.Add(fieldID), pb.Add(targetID), pb.Add(text),
			d.NowExpr(),
		)
		if _, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...); err != nil {
			return fmt.Errorf("set custom value %s/%s.%s: %w", kind, targetID, name, err)
		}
	}
	return nil
}

// DeleteValues removes all values for a target across the kind's fields.
func (s *Store) DeleteValues(ctx context.Context, kind, targetID string) error {
	if !ValidKind(kind) {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	pb := s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`DELETE FROM custom_field_values WHERE entity_id = %s
		 AND field_id IN (SELECT id FROM custom_fields WHERE entity_kind = %s)`,
		pb.Add(targetID), pb.Add(kind),
	)
	if _, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("delete custom values %s/%s: %w", kind, targetID, err)
	}
	return nil
}

// Compile-time check
var _ attrs.ValueStore = (*Store)(nil)

func scanDefinition(row map[string]any) Definition {
	def := Definition{
		ID:           asString(row["id"]),
		EntityKind:   asString(row["entity_kind"]),
		Name:         asString(row["name"]),
		Label:        asString(row["label"]),
		Type:         schema.FieldType(asString(row["type"])),
		Required:     store.ToBool(row["required"]),
		Active:       store.ToBool(row["active"]),
		DisplayOrder: asInt(row["display_order"]),
		ShowInTable:  store.ToBool(row["show_in_table"]),
		ShowInForm:   store.ToBool(row["show_in_form"]),
	}
	if t, ok := row["created_at"].(time.Time); ok {
		def.CreatedAt = t
	}
	if opts := asString(row["options"]); opts != "" {
		_ = json.Unmarshal([]byte(opts), &def.Options)
	}
	return def
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asInt(v any) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	default:
		return 0
	}
}
