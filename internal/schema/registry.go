package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopdesk-backend/internal/store"
)

// Registry owns entity and field metadata. It is a thin service over the
// relational store: every call re-queries, there is no in-process cache, so
// concurrent instances always observe committed metadata.
type Registry struct {
	store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// DefineEntityInput is the payload for DefineEntity.
type DefineEntityInput struct {
	Slug         string `json:"slug"`
	Label        string `json:"label"`
	Icon         string `json:"icon"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// DefineEntity creates a new entity in active state and returns its id.
// Returns ErrDuplicateSlug if the normalized slug already exists.
func (r *Registry) DefineEntity(ctx context.Context, in DefineEntityInput) (string, error) {
	slug := Slugify(in.Slug)
	if slug == "" {
		return "", fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if in.Label == "" {
		return "", fmt.Errorf("%w: label is required", ErrInvalidInput)
	}

	id := uuid.NewString()
	pb := r.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`INSERT INTO dyn_entities (id, slug, label, icon, description, display_order) VALUES (%s, %s, %s, %s, %s, %s)`,
		pb.Add(id), pb.Add(slug), pb.Add(in.Label), pb.Add(in.Icon), pb.Add(in.Description), pb.Add(in.DisplayOrder),
	)
	if _, err := store.Exec(ctx, r.store.DB, sqlStr, pb.Params()...); err != nil {
		if errors.Is(store.MapError(r.store.Dialect, err), store.ErrUniqueViolation) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
		}
		return "", fmt.Errorf("define entity %s: %w", slug, err)
	}
	return id, nil
}

// ListEntities returns entities ordered by display order, then slug.
func (r *Registry) ListEntities(ctx context.Context, activeOnly bool) ([]Entity, error) {
	sqlStr := "SELECT * FROM dyn_entities"
	if activeOnly {
		pb := r.store.Dialect.NewParamBuilder()
		sqlStr += fmt.Sprintf(" WHERE active = %s", pb.Add(r.store.Dialect.BoolParam(true)))
		sqlStr += " ORDER BY display_order, slug"
		rows, err := store.QueryRows(ctx, r.store.DB, sqlStr, pb.Params()...)
		if err != nil {
			return nil, fmt.Errorf("list entities: %w", err)
		}
		return scanEntities(rows), nil
	}
	rows, err := store.QueryRows(ctx, r.store.DB, sqlStr+" ORDER BY display_order, slug")
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return scanEntities(rows), nil
}

// GetEntity returns an entity with its ordered field list.
func (r *Registry) GetEntity(ctx context.Context, id string) (*Entity, error) {
	pb := r.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, r.store.DB,
		fmt.Sprintf("SELECT * FROM dyn_entities WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	entity := scanEntity(row)
	fields, err := r.FieldsForEntity(ctx, entity.ID, false)
	if err != nil {
		return nil, err
	}
	entity.Fields = fields
	return &entity, nil
}

// GetEntityBySlug resolves an entity by its slug, including fields.
// Returns ErrUnknownEntity if the slug does not exist.
func (r *Registry) GetEntityBySlug(ctx context.Context, slug string) (*Entity, error) {
	pb := r.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, r.store.DB,
		fmt.Sprintf("SELECT * FROM dyn_entities WHERE slug = %s", pb.Add(Slugify(slug))), pb.Params()...)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, slug)
	}
	if err != nil {
		return nil, err
	}
	entity := scanEntity(row)
	fields, err := r.FieldsForEntity(ctx, entity.ID, false)
	if err != nil {
		return nil, err
	}
	entity.Fields = fields
	return &entity, nil
}

// UpdateEntityInput carries partial entity updates. Nil pointers mean
// "leave unchanged", not "set to zero".
type UpdateEntityInput struct {
	Label        *string `json:"label"`
	Icon         *string `json:"icon"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	Active       *bool   `json:"active"`
}

// UpdateEntity applies the provided attributes to an entity.
func (r *Registry) UpdateEntity(ctx context.Context, id string, in UpdateEntityInput) error {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if in.Label != nil {
		sets = append(sets, "label = "+pb.Add(*in.Label))
	}
	if in.Icon != nil {
		sets = append(sets, "icon = "+pb.Add(*in.Icon))
	}
	if in.Description != nil {
		sets = append(sets, "description = "+pb.Add(*in.Description))
	}
	if in.DisplayOrder != nil {
		sets = append(sets, "display_order = "+pb.Add(*in.DisplayOrder))
	}
	if in.Active != nil {
		sets = append(sets, "active = "+pb.Add(r.store.Dialect.BoolParam(*in.Active)))
	}
	if len(sets) == 0 {
		// Nothing to change, but the caller still expects NotFound for bad ids.
		_, err := r.GetEntity(ctx, id)
		return err
	}
	sets = append(sets, "updated_at = "+r.store.Dialect.NowExpr())

	sqlStr := fmt.Sprintf("UPDATE dyn_entities SET %s WHERE id = %s", strings.Join(sets, ", "), pb.Add(id))
	n, err := store.Exec(ctx, r.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("update entity %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteEntity hard-deletes an entity. Fields and, transitively, stored
// values are removed by the schema's cascade constraints.
func (r *Registry) DeleteEntity(ctx context.Context, id string) error {
	pb := r.store.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf("DELETE FROM dyn_entities WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddFieldInput is the payload for AddField.
type AddFieldInput struct {
	Name         string       `json:"name"`
	Label        string       `json:"label"`
	Type         FieldType    `json:"type"`
	Options      FieldOptions `json:"options"`
	Rule         string       `json:"rule"`
	Required     bool         `json:"required"`
	Unique       bool         `json:"unique"`
	HideInList   bool         `json:"hide_in_list"`
	HideInForm   bool         `json:"hide_in_form"`
	DisplayOrder int          `json:"display_order"`
	DefaultValue string       `json:"default_value"`
}

// AddField adds a field definition to an entity and returns its id.
// Returns ErrUnknownEntity if the entity does not exist and
// ErrDuplicateFieldName if (entity, name) is already taken.
func (r *Registry) AddField(ctx context.Context, entityID string, in AddFieldInput) (string, error) {
	if in.Name == "" {
		return "", fmt.Errorf("%w: field name is required", ErrInvalidInput)
	}
	if !ValidFieldType(in.Type) {
		return "", fmt.Errorf("%w: %s", ErrUnknownFieldType, in.Type)
	}
	if err := in.Options.Validate(in.Type); err != nil {
		return "", err
	}
	if in.Rule != "" {
		if _, err := CompileRule(in.Rule); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	// Existence check up front so a missing entity is not reported as a
	// foreign key violation.
	pb := r.store.Dialect.NewParamBuilder()
	if _, err := store.QueryRow(ctx, r.store.DB,
		fmt.Sprintf("SELECT id FROM dyn_entities WHERE id = %s", pb.Add(entityID)), pb.Params()...); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
		}
		return "", err
	}

	optJSON, err := json.Marshal(in.Options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}

	id := uuid.NewString()
	d := r.store.Dialect
	pb = d.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`INSERT INTO dyn_fields (id, entity_id, name, label, type, options, rule, required, is_unique, show_in_list, show_in_form, display_order, default_value)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		pb.Add(id), pb.Add(entityID), pb.Add(in.Name), pb.Add(in.Label), pb.Add(string(in.Type)),
		pb.Add(string(optJSON)), pb.Add(in.Rule),
		pb.Add(d.BoolParam(in.Required)), pb.Add(d.BoolParam(in.Unique)),
		pb.Add(d.BoolParam(!in.HideInList)), pb.Add(d.BoolParam(!in.HideInForm)),
		pb.Add(in.DisplayOrder), pb.Add(in.DefaultValue),
	)
	if _, err := store.Exec(ctx, r.store.DB, sqlStr, pb.Params()...); err != nil {
		if errors.Is(store.MapError(d, err), store.ErrUniqueViolation) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateFieldName, in.Name)
		}
		return "", fmt.Errorf("add field %s: %w", in.Name, err)
	}
	return id, nil
}

// UpdateFieldInput carries partial field updates. Name and type are
// immutable once defined; stored values depend on both.
type UpdateFieldInput struct {
	Label        *string `json:"label"`
	Rule         *string `json:"rule"`
	Required     *bool   `json:"required"`
	ShowInList   *bool   `json:"show_in_list"`
	ShowInForm   *bool   `json:"show_in_form"`
	DisplayOrder *int    `json:"display_order"`
	DefaultValue *string `json:"default_value"`
}

// UpdateField applies the provided attributes to a field definition.
func (r *Registry) UpdateField(ctx context.Context, id string, in UpdateFieldInput) error {
	d := r.store.Dialect
	pb := d.NewParamBuilder()
	var sets []string
	if in.Label != nil {
		sets = append(sets, "label = "+pb.Add(*in.Label))
	}
	if in.Rule != nil {
		if *in.Rule != "" {
			if _, err := CompileRule(*in.Rule); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
		}
		sets = append(sets, "rule = "+pb.Add(*in.Rule))
	}
	if in.Required != nil {
		sets = append(sets, "required = "+pb.Add(d.BoolParam(*in.Required)))
	}
	if in.ShowInList != nil {
		sets = append(sets, "show_in_list = "+pb.Add(d.BoolParam(*in.ShowInList)))
	}
	if in.ShowInForm != nil {
		sets = append(sets, "show_in_form = "+pb.Add(d.BoolParam(*in.ShowInForm)))
	}
	if in.DisplayOrder != nil {
		sets = append(sets, "display_order = "+pb.Add(*in.DisplayOrder))
	}
	if in.DefaultValue != nil {
		sets = append(sets, "default_value = "+pb.Add(*in.DefaultValue))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = "+d.NowExpr())

	sqlStr := fmt.Sprintf("UPDATE dyn_fields SET %s WHERE id = %s", strings.Join(sets, ", "), pb.Add(id))
	n, err := store.Exec(ctx, r.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("update field %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeactivateField hides a field from list/form rendering while preserving
// its stored values. Reversible via ActivateField.
func (r *Registry) DeactivateField(ctx context.Context, id string) error {
	return r.setFieldActive(ctx, id, false)
}

// ActivateField re-enables a previously deactivated field.
func (r *Registry) ActivateField(ctx context.Context, id string) error {
	return r.setFieldActive(ctx, id, true)
}

func (r *Registry) setFieldActive(ctx context.Context, id string, active bool) error {
	d := r.store.Dialect
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("UPDATE dyn_fields SET active = %s, updated_at = %s WHERE id = %s",
		pb.Add(d.BoolParam(active)), d.NowExpr(), pb.Add(id))
	n, err := store.Exec(ctx, r.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("set field active %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteField hard-deletes a field definition. Stored values cascade away
// with it; this is irreversible.
func (r *Registry) DeleteField(ctx context.Context, id string) error {
	pb := r.store.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf("DELETE FROM dyn_fields WHERE id = %s", pb.Add(id)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete field %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FieldsForEntity returns an entity's fields ordered by display order, then name.
func (r *Registry) FieldsForEntity(ctx context.Context, entityID string, activeOnly bool) ([]Field, error) {
	d := r.store.Dialect
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT * FROM dyn_fields WHERE entity_id = %s", pb.Add(entityID))
	if activeOnly {
		sqlStr += fmt.Sprintf(" AND active = %s", pb.Add(d.BoolParam(true)))
	}
	sqlStr += " ORDER BY display_order, name"

	rows, err := store.QueryRows(ctx, r.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("fields for entity %s: %w", entityID, err)
	}
	fields := make([]Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, scanField(row))
	}
	return fields, nil
}

// --- row scanning ---

func scanEntities(rows []map[string]any) []Entity {
	entities := make([]Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, scanEntity(row))
	}
	return entities
}

func scanEntity(row map[string]any) Entity {
	return Entity{
		ID:           asString(row["id"]),
		Slug:         asString(row["slug"]),
		Label:        asString(row["label"]),
		Icon:         asString(row["icon"]),
		Description:  asString(row["description"]),
		DisplayOrder: asInt(row["display_order"]),
		Active:       store.ToBool(row["active"]),
		CreatedAt:    asTime(row["created_at"]),
		UpdatedAt:    asTime(row["updated_at"]),
	}
}

func scanField(row map[string]any) Field {
	f := Field{
		ID:           asString(row["id"]),
		EntityID:     asString(row["entity_id"]),
		Name:         asString(row["name"]),
		Label:        asString(row["label"]),
		Type:         FieldType(asString(row["type"])),
		Rule:         asString(row["rule"]),
		Required:     store.ToBool(row["required"]),
		Unique:       store.ToBool(row["is_unique"]),
		ShowInList:   store.ToBool(row["show_in_list"]),
		ShowInForm:   store.ToBool(row["show_in_form"]),
		DisplayOrder: asInt(row["display_order"]),
		DefaultValue: asString(row["default_value"]),
		Active:       store.ToBool(row["active"]),
		CreatedAt:    asTime(row["created_at"]),
		UpdatedAt:    asTime(row["updated_at"]),
	}
	if opts := asString(row["options"]); opts != "" {
		_ = json.Unmarshal([]byte(opts), &f.Options)
	}
	return f
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

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
