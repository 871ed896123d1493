package attrs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

// Store is the typed value store for dynamically defined entities.
type Store struct {
	store    *store.Store
	registry *schema.Registry
}

func NewStore(s *store.Store, reg *schema.Registry) *Store {
	return &Store{store: s, registry: reg}
}

// GetValues returns all stored values for a record, keyed by field name.
// Only active fields with a stored value appear; the store never fabricates
// defaults here.
func (s *Store) GetValues(ctx context.Context, entityType, recordID string) (map[string]Attribute, error) {
	if entityType == "" || recordID == "" {
		return nil, fmt.Errorf("%w: entity type and record id are required", schema.ErrInvalidInput)
	}
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return s.valuesForEntity(ctx, entity, recordID)
}

func (s *Store) valuesForEntity(ctx context.Context, entity *schema.Entity, recordID string) (map[string]Attribute, error) {
	d := s.store.Dialect
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT f.id AS field_id, f.name, f.label, f.type,
		        v.value_text, v.value_number, v.value_date, v.value_bool
		 FROM dyn_values v
		 JOIN dyn_fields f ON f.id = v.field_id
		 WHERE v.record_id = %s AND f.entity_id = %s AND f.active = %s`,
		pb.Add(recordID), pb.Add(entity.ID), pb.Add(d.BoolParam(true)),
	)
	rows, err := store.QueryRows(ctx, s.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("get values for %s/%s: %w", entity.Slug, recordID, err)
	}

	result := make(map[string]Attribute, len(rows))
	for _, row := range rows {
		ft := schema.FieldType(asString(row["type"]))
		result[asString(row["name"])] = Attribute{
			Value:   typedValue(ft, row),
			FieldID: asString(row["field_id"]),
			Label:   asString(row["label"]),
			Type:    ft,
		}
	}
	return result, nil
}

// typedValue picks the populated slot for the field's type and converts it
// to the canonical Go representation (string, float64, time.Time, bool).
func typedValue(t schema.FieldType, row map[string]any) any {
	switch t {
	case schema.TypeNumber:
		return asFloat(row["value_number"])
	case schema.TypeDate:
		return asTime(row["value_date"])
	case schema.TypeBoolean:
		return store.ToBool(row["value_bool"])
	default:
		return asString(row["value_text"])
	}
}

// SetValues coerces and upserts the supplied values against the entity's
// active fields. Unknown field names are silently ignored: stale client
// forms referencing removed fields must not fail the whole write.
//
// Each (record, field) upsert is independently atomic via the storage
// layer's uniqueness constraint; there is no batch transaction. A coercion
// or rule failure rejects only that field — valid siblings still persist —
// and all failures come back together as FieldErrors.
func (s *Store) SetValues(ctx context.Context, entityType, recordID string, values map[string]any) error {
	if entityType == "" || recordID == "" {
		return fmt.Errorf("%w: entity type and record id are required", schema.ErrInvalidInput)
	}
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return err
	}

	var fieldErrs FieldErrors
	for _, f := range entity.ActiveFields() {
		raw, ok := values[f.Name]
		if !ok {
			continue
		}
		coerced, err := f.Coerce(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, &CoercionError{Field: f.Name, Type: f.Type, Reason: err.Error()})
			continue
		}
		if err := f.CheckRule(coerced); err != nil {
			fieldErrs = append(fieldErrs, &CoercionError{Field: f.Name, Type: f.Type, Reason: err.Error()})
			continue
		}
		if err := s.upsertValue(ctx, recordID, &f, coerced); err != nil {
			return fmt.Errorf("set value %s/%s.%s: %w", entityType, recordID, f.Name, err)
		}
	}

	if len(fieldErrs) > 0 {
		return fieldErrs
	}
	return nil
}

func (s *Store) upsertValue(ctx context.Context, recordID string, f *schema.Field, coerced any) error {
	d := s.store.Dialect

	var vText, vNum, vDate, vBool any
	switch f.Type {
	case schema.TypeNumber:
		vNum = coerced
	case schema.TypeDate:
		vDate = d.TimeParam(coerced.(time.Time))
	case schema.TypeBoolean:
		vBool = d.BoolParam(coerced.(bool))
	default:
		vText = coerced
	}

	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`INSERT INTO dyn_values (id, record_id, field_id, value_text, value_number, value_date, value_bool)
		 VALUES (%s, %s, %s, %s, %s, %s, %s)
		 ON CONFLICT (record_id, field_id) DO UPDATE SET
		   value_text = excluded.value_text,
		   value_number = excluded.value_number,
		   value_date = excluded.value_date,
		   value_bool = excluded.value_bool,
		   updated_at = %s`,
		pb.Add(uuid.NewString()), pb.Add(recordID), pb.Add(f.ID),
		pb.Add(vText), pb.Add(vNum), pb.Add(vDate), pb.Add(vBool),
		d.NowExpr(),
	)
	_, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...)
	return err
}

// DeleteValues removes all stored values for a record across the entity's
// fields. Used when the parent record itself goes away.
func (s *Store) DeleteValues(ctx context.Context, entityType, recordID string) error {
	if entityType == "" || recordID == "" {
		return fmt.Errorf("%w: entity type and record id are required", schema.ErrInvalidInput)
	}
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return err
	}
	pb := s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`DELETE FROM dyn_values WHERE record_id = %s
		 AND field_id IN (SELECT id FROM dyn_fields WHERE entity_id = %s)`,
		pb.Add(recordID), pb.Add(entity.ID),
	)
	if _, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("delete values %s/%s: %w", entityType, recordID, err)
	}
	return nil
}

// Compile-time check
var _ ValueStore = (*Store)(nil)

// --- scan helpers ---

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

func asFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		// pgx/stdlib returns NUMERIC as its text form
		n, _ := strconv.ParseFloat(val, 64)
		return n
	case []byte:
		n, _ := strconv.ParseFloat(string(val), 64)
		return n
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		t, _ := time.Parse(time.RFC3339Nano, val)
		return t
	default:
		return time.Time{}
	}
}
