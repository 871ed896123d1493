package schema

import (
	"context"
	"errors"
	"testing"

	"shopdesk-backend/internal/config"
	"shopdesk-backend/internal/store"
)

func testRegistry(t *testing.T) (*Registry, context.Context) {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return NewRegistry(s), ctx
}

func TestDefineEntity_DuplicateSlug(t *testing.T) {
	reg, ctx := testRegistry(t)

	id, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty entity id")
	}

	// same slug in a different case still collides after normalization
	_, err = reg.DefineEntity(ctx, DefineEntityInput{Slug: "Vehicles", Label: "Vehicles Again"})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestDefineEntity_RequiresSlugAndLabel(t *testing.T) {
	reg, ctx := testRegistry(t)

	if _, err := reg.DefineEntity(ctx, DefineEntityInput{Label: "No Slug"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing slug, got %v", err)
	}
	if _, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "no-label"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing label, got %v", err)
	}
}

func TestGetEntityBySlug_Unknown(t *testing.T) {
	reg, ctx := testRegistry(t)

	_, err := reg.GetEntityBySlug(ctx, "nonexistent")
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestAddField_DuplicateName(t *testing.T) {
	reg, ctx := testRegistry(t)

	vehicles, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define vehicles: %v", err)
	}
	customers, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "customers", Label: "Customers"})
	if err != nil {
		t.Fatalf("define customers: %v", err)
	}

	if _, err := reg.AddField(ctx, vehicles, AddFieldInput{Name: "plate", Label: "Plate", Type: TypeText}); err != nil {
		t.Fatalf("add plate: %v", err)
	}
	_, err = reg.AddField(ctx, vehicles, AddFieldInput{Name: "plate", Label: "Plate Two", Type: TypeText})
	if !errors.Is(err, ErrDuplicateFieldName) {
		t.Fatalf("expected ErrDuplicateFieldName, got %v", err)
	}

	// the same name on another entity is independent
	if _, err := reg.AddField(ctx, customers, AddFieldInput{Name: "plate", Label: "Plate", Type: TypeText}); err != nil {
		t.Fatalf("same name on other entity: %v", err)
	}
}

func TestAddField_UnknownEntityAndType(t *testing.T) {
	reg, ctx := testRegistry(t)

	_, err := reg.AddField(ctx, "no-such-entity", AddFieldInput{Name: "x", Label: "X", Type: TypeText})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}

	id, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}
	_, err = reg.AddField(ctx, id, AddFieldInput{Name: "x", Label: "X", Type: "geometry"})
	if !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("expected ErrUnknownFieldType, got %v", err)
	}
}

func TestUpdateEntity_Partial(t *testing.T) {
	reg, ctx := testRegistry(t)

	id, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}

	label := "Fleet Vehicles"
	if err := reg.UpdateEntity(ctx, id, UpdateEntityInput{Label: &label}); err != nil {
		t.Fatalf("update label: %v", err)
	}

	got, err := reg.GetEntity(ctx, id)
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	if got.Label != "Fleet Vehicles" {
		t.Fatalf("expected updated label, got %q", got.Label)
	}
	if got.Slug != "vehicles" {
		t.Fatalf("slug should be untouched, got %q", got.Slug)
	}

	if err := reg.UpdateEntity(ctx, "missing-id", UpdateEntityInput{Label: &label}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing entity, got %v", err)
	}
}

func TestDeactivateField_HiddenNotDeleted(t *testing.T) {
	reg, ctx := testRegistry(t)

	entityID, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}
	fieldID, err := reg.AddField(ctx, entityID, AddFieldInput{Name: "color", Label: "Color", Type: TypeText})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}

	if err := reg.DeactivateField(ctx, fieldID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := reg.FieldsForEntity(ctx, entityID, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active fields, got %d", len(active))
	}

	all, err := reg.FieldsForEntity(ctx, entityID, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].Active {
		t.Fatalf("expected one inactive field, got %+v", all)
	}

	if err := reg.ActivateField(ctx, fieldID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, err = reg.FieldsForEntity(ctx, entityID, true)
	if err != nil {
		t.Fatalf("list reactivated: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected field back after reactivation, got %d", len(active))
	}
}

func TestAddField_SelectNeedsChoices(t *testing.T) {
	reg, ctx := testRegistry(t)

	entityID, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "orders", Label: "Orders"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}

	if _, err := reg.AddField(ctx, entityID, AddFieldInput{Name: "status", Label: "Status", Type: TypeSelect}); err == nil {
		t.Fatal("expected error for select without choices")
	}

	if _, err := reg.AddField(ctx, entityID, AddFieldInput{
		Name: "status", Label: "Status", Type: TypeSelect,
		Options: FieldOptions{Choices: []string{"open", "closed"}},
	}); err != nil {
		t.Fatalf("select with choices: %v", err)
	}
}

func TestAddField_BadRuleRejected(t *testing.T) {
	reg, ctx := testRegistry(t)

	entityID, err := reg.DefineEntity(ctx, DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}

	if _, err := reg.AddField(ctx, entityID, AddFieldInput{
		Name: "year", Label: "Year", Type: TypeNumber, Rule: "value >=",
	}); err == nil {
		t.Fatal("expected error for malformed rule expression")
	}
}
