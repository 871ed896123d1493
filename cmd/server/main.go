package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"shopdesk-backend/internal/admin"
	"shopdesk-backend/internal/attrs"
	"shopdesk-backend/internal/audit"
	"shopdesk-backend/internal/auth"
	"shopdesk-backend/internal/config"
	"shopdesk-backend/internal/customfield"
	"shopdesk-backend/internal/engine"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, driver: %s, db: %s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Build the domain stores
	registry := schema.NewRegistry(db)
	records := attrs.NewStore(db, registry)
	custom := customfield.NewStore(db)

	// 5. Audit log
	auditLog := audit.NewLogger(db, cfg.Audit.Enabled, cfg.Audit.BufferSize, cfg.Audit.FlushIntervalMs)
	defer auditLog.Close()

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (before middleware — no auth required)
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	auth.RegisterAuthRoutes(app, authHandler)

	// 9. Auth middleware for all protected routes
	authMW := auth.AuthMiddleware(cfg.JWTSecret)
	adminMW := auth.RequireAdmin()

	// 10. Register admin routes (auth + admin required)
	adminHandler := admin.NewHandler(registry, custom, auditLog)
	admin.RegisterAdminRoutes(app, adminHandler, authMW, adminMW)

	// 11. Register data routes (auth required)
	dataHandler := engine.NewHandler(records, custom, auditLog)
	engine.RegisterDataRoutes(app, dataHandler, authMW)

	// 12. Start audit retention cleanup
	if cfg.Audit.Enabled {
		stopCleanup := audit.StartCleanup(db, cfg.Audit.RetentionDays)
		defer stopCleanup()
	}

	// 13. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(engine.ErrorResponse{
		Error: &engine.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
