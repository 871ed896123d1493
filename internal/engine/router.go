package engine

import "github.com/gofiber/fiber/v2"

func RegisterDataRoutes(app *fiber.App, h *Handler, middlewares ...fiber.Handler) {
	api := app.Group("/api", middlewares...)

	api.Post("/data/:entity/records", h.CreateRecord)
	api.Get("/data/:entity/records", h.ListRecords)
	api.Get("/data/:entity/records/:id", h.GetRecord)
	api.Delete("/data/:entity/records/:id", h.DeleteRecord)

	api.Get("/data/:entity/records/:id/values", h.GetValues)
	api.Put("/data/:entity/records/:id/values", h.SetValues)
	api.Delete("/data/:entity/records/:id/values", h.DeleteValues)

	api.Get("/custom/:kind/:id/values", h.GetCustomValues)
	api.Put("/custom/:kind/:id/values", h.SetCustomValues)
	api.Delete("/custom/:kind/:id/values", h.DeleteCustomValues)
}
