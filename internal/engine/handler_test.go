package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"shopdesk-backend/internal/attrs"
	"shopdesk-backend/internal/audit"
	"shopdesk-backend/internal/config"
	"shopdesk-backend/internal/customfield"
	"shopdesk-backend/internal/engine"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

func testStore(t *testing.T) *store.Store {
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
	return s
}

func testApp(t *testing.T, s *store.Store) (*fiber.App, *schema.Registry, *customfield.Store) {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *engine.AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
			}
			log.Printf("ERROR: %v", err)
			return c.Status(500).JSON(engine.ErrorResponse{
				Error: &engine.AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"},
			})
		},
	})
	reg := schema.NewRegistry(s)
	records := attrs.NewStore(s, reg)
	custom := customfield.NewStore(s)
	auditLog := audit.NewLogger(s, false, 0, 0)
	h := engine.NewHandler(records, custom, auditLog)
	engine.RegisterDataRoutes(app, h)
	return app, reg, custom
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestRecordLifecycle(t *testing.T) {
	s := testStore(t)
	app, reg, _ := testApp(t, s)
	ctx := context.Background()

	entityID, err := reg.DefineEntity(ctx, schema.DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}
	for _, f := range []schema.AddFieldInput{
		{Name: "plate", Label: "Plate", Type: schema.TypeText},
		{Name: "year", Label: "Year", Type: schema.TypeNumber},
	} {
		if _, err := reg.AddField(ctx, entityID, f); err != nil {
			t.Fatalf("add field %s: %v", f.Name, err)
		}
	}

	// create
	resp := doRequest(t, app, "POST", "/api/data/vehicles/records", nil)
	if resp.StatusCode != 201 {
		t.Fatalf("create record: expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody(t, resp)
	recordID, _ := created["data"].(map[string]any)["id"].(string)
	if recordID == "" {
		t.Fatal("expected record id in response")
	}

	// set values
	resp = doRequest(t, app, "PUT", "/api/data/vehicles/records/"+recordID+"/values", map[string]any{
		"plate": "KA-01-1234",
		"year":  2021,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("set values: expected 200, got %d", resp.StatusCode)
	}

	// materialized read
	resp = doRequest(t, app, "GET", "/api/data/vehicles/records/"+recordID, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get record: expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	attrsMap, _ := body["data"].(map[string]any)["attributes"].(map[string]any)
	plate, _ := attrsMap["plate"].(map[string]any)
	if plate["value"] != "KA-01-1234" {
		t.Fatalf("expected plate in materialized record, got %v", attrsMap)
	}

	// list with paging meta
	resp = doRequest(t, app, "GET", "/api/data/vehicles/records?page=1&per_page=10", nil)
	body = decodeBody(t, resp)
	meta, _ := body["meta"].(map[string]any)
	if meta["total"] != float64(1) {
		t.Fatalf("expected total 1, got %v", meta["total"])
	}

	// delete
	resp = doRequest(t, app, "DELETE", "/api/data/vehicles/records/"+recordID, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("delete record: expected 200, got %d", resp.StatusCode)
	}
	resp = doRequest(t, app, "GET", "/api/data/vehicles/records/"+recordID, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestUnknownEntity404(t *testing.T) {
	s := testStore(t)
	app, _, _ := testApp(t, s)

	resp := doRequest(t, app, "POST", "/api/data/spaceships/records", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown entity, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "UNKNOWN_ENTITY" {
		t.Fatalf("expected UNKNOWN_ENTITY code, got %v", errObj["code"])
	}
}

func TestSetValues_PartialFailureResponse(t *testing.T) {
	s := testStore(t)
	app, reg, _ := testApp(t, s)
	ctx := context.Background()

	entityID, err := reg.DefineEntity(ctx, schema.DefineEntityInput{Slug: "vehicles", Label: "Vehicles"})
	if err != nil {
		t.Fatalf("define entity: %v", err)
	}
	for _, f := range []schema.AddFieldInput{
		{Name: "plate", Label: "Plate", Type: schema.TypeText},
		{Name: "year", Label: "Year", Type: schema.TypeNumber},
	} {
		if _, err := reg.AddField(ctx, entityID, f); err != nil {
			t.Fatalf("add field %s: %v", f.Name, err)
		}
	}

	resp := doRequest(t, app, "POST", "/api/data/vehicles/records", nil)
	created := decodeBody(t, resp)
	recordID, _ := created["data"].(map[string]any)["id"].(string)

	resp = doRequest(t, app, "PUT", "/api/data/vehicles/records/"+recordID+"/values", map[string]any{
		"plate": "KA-02-5555",
		"year":  "not-a-year",
	})
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422 for coercion failure, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "COERCION_FAILED" {
		t.Fatalf("expected COERCION_FAILED, got %v", errObj["code"])
	}

	// the valid sibling was stored regardless
	resp = doRequest(t, app, "GET", "/api/data/vehicles/records/"+recordID+"/values", nil)
	values := decodeBody(t, resp)
	plate, _ := values["data"].(map[string]any)["plate"].(map[string]any)
	if plate["value"] != "KA-02-5555" {
		t.Fatalf("expected plate persisted despite sibling failure, got %v", values)
	}
}

func TestCustomValuesRoutes(t *testing.T) {
	s := testStore(t)
	app, _, custom := testApp(t, s)
	ctx := context.Background()

	if _, err := custom.AddField(ctx, customfield.KindShop, customfield.AddFieldInput{
		Name: "warranty_months", Label: "Warranty (months)", Type: schema.TypeNumber,
	}); err != nil {
		t.Fatalf("add custom field: %v", err)
	}

	resp := doRequest(t, app, "PUT", "/api/custom/shop/42/values", map[string]any{"warranty_months": 12})
	if resp.StatusCode != 200 {
		t.Fatalf("set custom values: expected 200, got %d", resp.StatusCode)
	}

	resp = doRequest(t, app, "GET", "/api/custom/shop/42/values", nil)
	body := decodeBody(t, resp)
	wm, _ := body["data"].(map[string]any)["warranty_months"].(map[string]any)
	if wm["value"] != "12" {
		t.Fatalf("expected text value \"12\", got %v", wm["value"])
	}

	// unknown kind is rejected
	resp = doRequest(t, app, "GET", "/api/custom/warehouse/42/values", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown kind, got %d", resp.StatusCode)
	}
}
