package customfield

import (
	"context"
	"errors"
	"testing"

	"shopdesk-backend/internal/config"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

func testStore(t *testing.T) (*Store, context.Context) {
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
	return NewStore(s), ctx
}

func TestAddField_UnknownKind(t *testing.T) {
	s, ctx := testStore(t)

	_, err := s.AddField(ctx, "warehouse", AddFieldInput{Name: "aisle", Label: "Aisle"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestAddField_DuplicatePerKind(t *testing.T) {
	s, ctx := testStore(t)

	if _, err := s.AddField(ctx, KindShop, AddFieldInput{Name: "region", Label: "Region"}); err != nil {
		t.Fatalf("add shop field: %v", err)
	}
	_, err := s.AddField(ctx, KindShop, AddFieldInput{Name: "region", Label: "Region Two"})
	if !errors.Is(err, schema.ErrDuplicateFieldName) {
		t.Fatalf("expected ErrDuplicateFieldName, got %v", err)
	}

	// same name on the other kind is independent
	if _, err := s.AddField(ctx, KindLicense, AddFieldInput{Name: "region", Label: "Region"}); err != nil {
		t.Fatalf("same name on license kind: %v", err)
	}
}

func TestValues_TextRoundTrip(t *testing.T) {
	s, ctx := testStore(t)

	if _, err := s.AddField(ctx, KindShop, AddFieldInput{
		Name: "warranty_months", Label: "Warranty (months)", Type: schema.TypeNumber,
	}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	targetID := "42"
	if err := s.SetValues(ctx, KindShop, targetID, map[string]any{"warranty_months": 12}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	got, err := s.GetValues(ctx, KindShop, targetID)
	if err != nil {
		t.Fatalf("get values: %v", err)
	}

	// a declared number type is advisory only; storage stays text
	if got["warranty_months"].Value != "12" {
		t.Fatalf("expected text %q, got %v (%T)", "12", got["warranty_months"].Value, got["warranty_months"].Value)
	}
	if got["warranty_months"].Type != schema.TypeNumber {
		t.Fatalf("declared type should be preserved, got %v", got["warranty_months"].Type)
	}
}

func TestValues_TimestampShapedTextKeptVerbatim(t *testing.T) {
	s, ctx := testStore(t)

	if _, err := s.AddField(ctx, KindLicense, AddFieldInput{Name: "notes", Label: "Notes"}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	stored := "2021-03-04 05:06:07"
	if err := s.SetValues(ctx, KindLicense, "lic-9", map[string]any{"notes": stored}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	got, err := s.GetValues(ctx, KindLicense, "lic-9")
	if err != nil {
		t.Fatalf("get values: %v", err)
	}
	if got["notes"].Value != stored {
		t.Fatalf("expected %q back verbatim, got %v (%T)", stored, got["notes"].Value, got["notes"].Value)
	}
}

func TestSetValues_OverwriteAndUnknownNames(t *testing.T) {
	s, ctx := testStore(t)

	if _, err := s.AddField(ctx, KindLicense, AddFieldInput{Name: "issuer", Label: "Issuer"}); err != nil {
		t.Fatalf("add field: %v", err)
	}

	if err := s.SetValues(ctx, KindLicense, "lic-1", map[string]any{"issuer": "RTO-Bangalore"}); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := s.SetValues(ctx, KindLicense, "lic-1", map[string]any{"issuer": "RTO-Mysore", "bogus": "x"}); err != nil {
		t.Fatalf("second set: %v", err)
	}

	got, err := s.GetValues(ctx, KindLicense, "lic-1")
	if err != nil {
		t.Fatalf("get values: %v", err)
	}
	if got["issuer"].Value != "RTO-Mysore" {
		t.Fatalf("expected last write to win, got %v", got["issuer"].Value)
	}
	if _, ok := got["bogus"]; ok {
		t.Fatal("unknown name should be ignored")
	}
}

func TestDeactivateField_ValueHiddenNotLost(t *testing.T) {
	s, ctx := testStore(t)

	fieldID, err := s.AddField(ctx, KindShop, AddFieldInput{Name: "region", Label: "Region"})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}
	if err := s.SetValues(ctx, KindShop, "shop-9", map[string]any{"region": "south"}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	if err := s.DeactivateField(ctx, fieldID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := s.GetValues(ctx, KindShop, "shop-9")
	if err != nil {
		t.Fatalf("get values: %v", err)
	}
	if _, ok := got["region"]; ok {
		t.Fatal("deactivated field should be hidden")
	}

	// the stored value itself survives deactivation
	v, err := s.GetValue(ctx, fieldID, "shop-9")
	if err != nil {
		t.Fatalf("direct lookup: %v", err)
	}
	if v != "south" {
		t.Fatalf("expected stored value to survive, got %q", v)
	}

	if err := s.ActivateField(ctx, fieldID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, err = s.GetValues(ctx, KindShop, "shop-9")
	if err != nil {
		t.Fatalf("get values after reactivation: %v", err)
	}
	if got["region"].Value != "south" {
		t.Fatalf("expected value back after reactivation, got %v", got["region"].Value)
	}
}

func TestRemoveField_CascadesValues(t *testing.T) {
	s, ctx := testStore(t)

	fieldID, err := s.AddField(ctx, KindShop, AddFieldInput{Name: "region", Label: "Region"})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}
	if err := s.SetValues(ctx, KindShop, "shop-1", map[string]any{"region": "north"}); err != nil {
		t.Fatalf("set values: %v", err)
	}

	if err := s.RemoveField(ctx, fieldID); err != nil {
		t.Fatalf("remove field: %v", err)
	}

	if _, err := s.GetValue(ctx, fieldID, "shop-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after field removal, got %v", err)
	}
}
