package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopdesk-backend/internal/audit"
	"shopdesk-backend/internal/customfield"
	"shopdesk-backend/internal/engine"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

// Handler serves the schema administration endpoints: entity and field
// definitions for the full model, plus custom field definitions for the
// built-in kinds.
type Handler struct {
	registry *schema.Registry
	custom   *customfield.Store
	audit    *audit.Logger
}

func NewHandler(reg *schema.Registry, custom *customfield.Store, auditLog *audit.Logger) *Handler {
	return &Handler{registry: reg, custom: custom, audit: auditLog}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middlewares ...fiber.Handler) {
	admin := app.Group("/api/_admin", middlewares...)

	admin.Get("/entities", h.ListEntities)
	admin.Post("/entities", h.CreateEntity)
	admin.Get("/entities/:id", h.GetEntity)
	admin.Patch("/entities/:id", h.UpdateEntity)
	admin.Delete("/entities/:id", h.DeleteEntity)

	admin.Post("/entities/:id/fields", h.AddField)
	admin.Patch("/fields/:id", h.UpdateField)
	admin.Delete("/fields/:id", h.DeleteField)
	admin.Post("/fields/:id/deactivate", h.DeactivateField)
	admin.Post("/fields/:id/activate", h.ActivateField)

	admin.Get("/custom-fields", h.ListCustomFields)
	admin.Post("/custom-fields", h.CreateCustomField)
	admin.Delete("/custom-fields/:id", h.DeleteCustomField)
	admin.Post("/custom-fields/:id/deactivate", h.DeactivateCustomField)
	admin.Post("/custom-fields/:id/activate", h.ActivateCustomField)
}

// --- entity endpoints ---

// ListEntities returns entities ordered by display order. Inactive entities
// are included only with ?all=true.
func (h *Handler) ListEntities(c *fiber.Ctx) error {
	activeOnly := !c.QueryBool("all", false)
	entities, err := h.registry.ListEntities(c.Context(), activeOnly)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": entities})
}

func (h *Handler) CreateEntity(c *fiber.Ctx) error {
	var in schema.DefineEntityInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	id, err := h.registry.DefineEntity(c.Context(), in)
	if err != nil {
		return h.respond(c, err)
	}

	h.enqueue(c, "entity.define", in.Slug, id)
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func (h *Handler) GetEntity(c *fiber.Ctx) error {
	id := c.Params("id")
	entity, err := h.registry.GetEntity(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("entity", id))
		}
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": entity})
}

func (h *Handler) UpdateEntity(c *fiber.Ctx) error {
	id := c.Params("id")
	var in schema.UpdateEntityInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	if err := h.registry.UpdateEntity(c.Context(), id, in); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("entity", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "entity.update", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

// DeleteEntity hard-deletes an entity, its fields and all stored values.
// The UI is expected to confirm before calling this.
func (h *Handler) DeleteEntity(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.registry.DeleteEntity(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("entity", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "entity.delete", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// --- field endpoints ---

func (h *Handler) AddField(c *fiber.Ctx) error {
	entityID := c.Params("id")
	var in schema.AddFieldInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	id, err := h.registry.AddField(c.Context(), entityID, in)
	if err != nil {
		return h.respond(c, err)
	}

	h.enqueue(c, "field.add", in.Name, id)
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func (h *Handler) UpdateField(c *fiber.Ctx) error {
	id := c.Params("id")
	var in schema.UpdateFieldInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	if err := h.registry.UpdateField(c.Context(), id, in); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("field", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "field.update", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

func (h *Handler) DeleteField(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.registry.DeleteField(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("field", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "field.delete", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

func (h *Handler) DeactivateField(c *fiber.Ctx) error {
	return h.setFieldActive(c, false)
}

func (h *Handler) ActivateField(c *fiber.Ctx) error {
	return h.setFieldActive(c, true)
}

func (h *Handler) setFieldActive(c *fiber.Ctx, active bool) error {
	id := c.Params("id")
	var err error
	if active {
		err = h.registry.ActivateField(c.Context(), id)
	} else {
		err = h.registry.DeactivateField(c.Context(), id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("field", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "field.set_active", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"active": active}})
}

// --- custom field endpoints ---

func (h *Handler) ListCustomFields(c *fiber.Ctx) error {
	kind := c.Query("kind")
	activeOnly := !c.QueryBool("all", false)
	defs, err := h.custom.ListFields(c.Context(), kind, activeOnly)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": defs})
}

func (h *Handler) CreateCustomField(c *fiber.Ctx) error {
	var body struct {
		Kind string `json:"kind"`
		customfield.AddFieldInput
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	id, err := h.custom.AddField(c.Context(), body.Kind, body.AddFieldInput)
	if err != nil {
		return h.respond(c, err)
	}

	h.enqueue(c, "custom_field.add", body.Kind, id)
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func (h *Handler) DeleteCustomField(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.custom.RemoveField(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("custom field", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "custom_field.delete", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

func (h *Handler) DeactivateCustomField(c *fiber.Ctx) error {
	return h.setCustomFieldActive(c, false)
}

func (h *Handler) ActivateCustomField(c *fiber.Ctx) error {
	return h.setCustomFieldActive(c, true)
}

func (h *Handler) setCustomFieldActive(c *fiber.Ctx, active bool) error {
	id := c.Params("id")
	var err error
	if active {
		err = h.custom.ActivateField(c.Context(), id)
	} else {
		err = h.custom.DeactivateField(c.Context(), id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("custom field", id))
		}
		return h.respond(c, err)
	}

	h.enqueue(c, "custom_field.set_active", "", id)
	return c.JSON(fiber.Map{"data": fiber.Map{"active": active}})
}

// --- helpers ---

func (h *Handler) enqueue(c *fiber.Ctx, action, entity, recordID string) {
	user, _ := c.Locals("user").(*schema.UserContext)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.audit.Enqueue(audit.Event{Action: action, Entity: entity, RecordID: recordID, UserID: userID})
}

func (h *Handler) respond(c *fiber.Ctx, err error) error {
	if appErr := engine.FromDomainError(err); appErr != nil {
		return respondError(c, appErr)
	}
	return err
}

func respondError(c *fiber.Ctx, appErr *engine.AppError) error {
	return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
}
