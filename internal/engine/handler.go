package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"shopdesk-backend/internal/attrs"
	"shopdesk-backend/internal/audit"
	"shopdesk-backend/internal/customfield"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

// Handler serves record and value routes for both storage models.
type Handler struct {
	records *attrs.Store
	custom  *customfield.Store
	audit   *audit.Logger
}

func NewHandler(records *attrs.Store, custom *customfield.Store, auditLog *audit.Logger) *Handler {
	return &Handler{records: records, custom: custom, audit: auditLog}
}

// CreateRecord handles POST /api/data/:entity/records.
// Records are pure identity anchors; values are written separately.
func (h *Handler) CreateRecord(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	user := getUser(c)

	id, err := h.records.CreateRecord(c.Context(), entityType, user.ID)
	if err != nil {
		return h.respond(c, err)
	}

	h.audit.Enqueue(audit.Event{Action: "record.create", Entity: entityType, RecordID: id, UserID: user.ID})
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// ListRecords handles GET /api/data/:entity/records.
func (h *Handler) ListRecords(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	records, total, err := h.records.MaterializeList(c.Context(), entityType, page, perPage)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{
		"data": records,
		"meta": fiber.Map{"page": page, "per_page": perPage, "total": total},
	})
}

// GetRecord handles GET /api/data/:entity/records/:id.
func (h *Handler) GetRecord(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	id := c.Params("id")

	records, err := h.records.Materialize(c.Context(), entityType, []string{id})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError("record", id))
		}
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": records[0]})
}

// DeleteRecord handles DELETE /api/data/:entity/records/:id.
func (h *Handler) DeleteRecord(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	id := c.Params("id")
	user := getUser(c)

	if err := h.records.DeleteRecord(c.Context(), entityType, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError("record", id))
		}
		return h.respond(c, err)
	}

	h.audit.Enqueue(audit.Event{Action: "record.delete", Entity: entityType, RecordID: id, UserID: user.ID})
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// GetValues handles GET /api/data/:entity/records/:id/values.
func (h *Handler) GetValues(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	id := c.Params("id")

	values, err := h.records.GetValues(c.Context(), entityType, id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": values})
}

// SetValues handles PUT /api/data/:entity/records/:id/values.
// A coercion failure on one field does not abort the batch: valid siblings
// persist and the failed fields come back in the error details.
func (h *Handler) SetValues(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	id := c.Params("id")
	user := getUser(c)

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	// The store trusts its caller on record identity; the handler is that caller.
	if _, err := h.records.GetRecord(c.Context(), entityType, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError("record", id))
		}
		return h.respond(c, err)
	}

	if err := h.records.SetValues(c.Context(), entityType, id, body); err != nil {
		h.audit.Enqueue(audit.Event{Action: "values.set", Entity: entityType, RecordID: id, UserID: user.ID,
			Detail: fmt.Sprintf("partial: %v", err)})
		return h.respond(c, err)
	}

	h.audit.Enqueue(audit.Event{Action: "values.set", Entity: entityType, RecordID: id, UserID: user.ID})
	values, err := h.records.GetValues(c.Context(), entityType, id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": values})
}

// DeleteValues handles DELETE /api/data/:entity/records/:id/values.
func (h *Handler) DeleteValues(c *fiber.Ctx) error {
	entityType := c.Params("entity")
	id := c.Params("id")
	user := getUser(c)

	if err := h.records.DeleteValues(c.Context(), entityType, id); err != nil {
		return h.respond(c, err)
	}
	h.audit.Enqueue(audit.Event{Action: "values.delete", Entity: entityType, RecordID: id, UserID: user.ID})
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// --- custom field overlay values ---

// GetCustomValues handles GET /api/custom/:kind/:id/values.
func (h *Handler) GetCustomValues(c *fiber.Ctx) error {
	kind := c.Params("kind")
	id := c.Params("id")

	values, err := h.custom.GetValues(c.Context(), kind, id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": values})
}

// SetCustomValues handles PUT /api/custom/:kind/:id/values.
func (h *Handler) SetCustomValues(c *fiber.Ctx) error {
	kind := c.Params("kind")
	id := c.Params("id")
	user := getUser(c)

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	if err := h.custom.SetValues(c.Context(), kind, id, body); err != nil {
		return h.respond(c, err)
	}

	h.audit.Enqueue(audit.Event{Action: "custom_values.set", Entity: kind, RecordID: id, UserID: user.ID})
	values, err := h.custom.GetValues(c.Context(), kind, id)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(fiber.Map{"data": values})
}

// DeleteCustomValues handles DELETE /api/custom/:kind/:id/values.
func (h *Handler) DeleteCustomValues(c *fiber.Ctx) error {
	kind := c.Params("kind")
	id := c.Params("id")
	user := getUser(c)

	if err := h.custom.DeleteValues(c.Context(), kind, id); err != nil {
		return h.respond(c, err)
	}
	h.audit.Enqueue(audit.Event{Action: "custom_values.delete", Entity: kind, RecordID: id, UserID: user.ID})
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// respond maps a domain error to its AppError or lets it bubble to the
// global error handler as an opaque 500.
func (h *Handler) respond(c *fiber.Ctx, err error) error {
	if appErr := FromDomainError(err); appErr != nil {
		return respondError(c, appErr)
	}
	return err
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

func getUser(c *fiber.Ctx) *schema.UserContext {
	user, _ := c.Locals("user").(*schema.UserContext)
	if user == nil {
		return &schema.UserContext{}
	}
	return user
}
