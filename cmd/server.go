// server.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/realtor/pkg/config"
	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger with config
	logx.SetLevel(logx.ParseLevel(cfg.Server.LogLevel))
	logx.SetJSON(cfg.Server.LogJSON)

	logx.Info("🚀 Starting Realtor Assistant API...")
	logx.Infof("Environment: %s", cfg.Environment)

	// 3. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 4. Start background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	// 5. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Realtor Assistant API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg),
		BodyLimit:             4 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// 6. Global Middleware
	setupMiddleware(app, cfg)

	// 7. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(container))
	app.Get("/api/v1/docs", apiDocsHandler(cfg))

	// 8. Register Routes
	container.LeadHandlers.RegisterRoutes(app, container.WebhookGuard)
	logx.Info("✓ Lead routes registered")

	// 9. 404 Handler
	app.Use(notFoundHandler)

	// 10. Print Route Summary
	printRouteSummary()

	// 11. Start Server with Graceful Shutdown
	startServer(app, cfg, cancel)
}

// ============================================================================
// Setup Functions
// ============================================================================

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	// Panic recovery
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))

	// Request ID
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Server.CORSOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, DELETE, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	// Request logger
	logFormat := "${time} | ${status} | ${latency} | ${method} ${path}"
	if cfg.IsDevelopment() {
		logFormat += " | ${ip} | ${reqHeader:X-Request-ID}\n"
	} else {
		logFormat += "\n"
	}

	app.Use(logger.New(logger.Config{
		Format:     logFormat,
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler reports the session store and the interaction database
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":        "healthy",
			"service":       "realtor-api",
			"environment":   container.Config.Environment,
			"session_store": container.Config.Memory.Store,
			"timestamp":     fmt.Sprintf("%d", time.Now().Unix()),
		}

		if container.DB != nil {
			if err := container.DB.PingContext(c.UserContext()); err != nil {
				health["db"] = "unhealthy"
				health["db_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["db"] = "healthy"
			}
		}

		if container.Redis != nil {
			if _, err := container.Redis.Ping(c.UserContext()).Result(); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}

		if container.MemoryStore != nil {
			health["sessions"] = container.MemoryStore.Len()
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Realtor Assistant API",
			"version":     "1.0.0",
			"description": "Lead qualification assistant for real-estate CRM workflows",
			"environment": container.Config.Environment,
			"tools":       enabledTools(container),
			"endpoints": fiber.Map{
				"docs":   "/api/v1/docs",
				"health": "/health",
			},
		})
	}
}

// apiDocsHandler returns API documentation
func apiDocsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"api_version": "v1",
			"base_url":    cfg.Server.BaseURL,
			"endpoints": fiber.Map{
				"webhooks": fiber.Map{
					"send_message": "POST /send_message_to_ai",
					"clip_history": "POST /clip_message_history",
				},
				"sessions": fiber.Map{
					"get":          "GET /api/v1/sessions/:key",
					"end":          "DELETE /api/v1/sessions/:key",
					"interactions": "GET /api/v1/sessions/:key/interactions?limit=",
				},
				"contacts": fiber.Map{
					"location": "GET /api/v1/contacts/location?email=&phone=",
				},
			},
			"authentication": fiber.Map{
				"enabled": cfg.Auth.Enabled(),
				"header":  "Authorization: Bearer <HS256 jwt>",
			},
			"memory": fiber.Map{
				"max_length":   cfg.Memory.MaxLength,
				"recent_pairs": cfg.Memory.RecentPairs,
				"labels":       []string{cfg.Memory.UserLabel, cfg.Memory.AgentLabel},
				"session_ttl":  cfg.Memory.SessionTTL.String(),
				"clip_budget":  cfg.Memory.ClipHistorySize,
			},
		})
	}
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist. Visit /api/v1/docs for documentation.",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"request_id": c.Get("X-Request-ID"),
		}).Errorf("Request error: %v", err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":      fe.Message,
				"code":       "FIBER_ERROR",
				"status":     fe.Code,
				"request_id": c.Get("X-Request-ID"),
			})
		}

		var e *errx.Error
		if errors.As(err, &e) {
			response := fiber.Map{
				"error":      e.Message,
				"code":       e.Code,
				"type":       string(e.Type),
				"status":     e.HTTPStatus,
				"request_id": c.Get("X-Request-ID"),
			}
			if len(e.Details) > 0 {
				response["details"] = e.Details
			}
			if cfg.IsDevelopment() && e.Err != nil {
				response["underlying_error"] = e.Err.Error()
			}
			status := e.HTTPStatus
			if status == 0 {
				status = fiber.StatusInternalServerError
			}
			return c.Status(status).JSON(response)
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "Internal Server Error",
			"type":       "INTERNAL",
			"code":       "INTERNAL_ERROR",
			"message":    "An unexpected error occurred. Please contact support if the issue persists.",
			"request_id": c.Get("X-Request-ID"),
		})
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

func enabledTools(container *Container) []string {
	tools := []string{}
	if container.Zillow != nil {
		tools = append(tools, "zillow")
	}
	if container.Realtor != nil {
		tools = append(tools, "realtor")
	}
	if container.Places != nil {
		tools = append(tools, "google_places")
	}
	return tools
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Health: /health")
	logx.Info("   ├─ Info: /")
	logx.Info("   ├─ Docs: /api/v1/docs")
	logx.Info("   ├─ Webhooks: /send_message_to_ai, /clip_message_history")
	logx.Info("   ├─ Sessions: /api/v1/sessions/:key")
	logx.Info("   └─ Contacts: /api/v1/contacts/location")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, cfg *config.Config, cancel context.CancelFunc) {
	port := fmt.Sprintf("%d", cfg.Server.Port)

	go func() {
		logx.Info(strings.Repeat("=", 71))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("📚 API Docs: http://localhost:%s/api/v1/docs", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Infof("🧠 Session store: %s", cfg.Memory.Store)
		logx.Info(strings.Repeat("=", 71))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app, cancel)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	// Cancel context to stop background services
	cancel()

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
