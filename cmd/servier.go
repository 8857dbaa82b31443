package main

import (
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/flagforge/flagforge/pkg/config"
	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/logx"
)

func main() {
	logx.SetLevel(logx.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("configuration error: %v", err)
	}

	logx.Infof("starting %s", cfg.App.Name)

	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		IdleTimeout:           120 * time.Second,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// Health check
	app.Get("/health", healthCheckHandler(container))

	// Routes
	authenticate := container.IAM.AuthMiddleware.Authenticate()

	container.IAM.AuthHandlers.RegisterRoutes(app, authenticate)
	logx.Info("auth routes registered")

	container.IAM.APIKeyHandlers.RegisterRoutes(app, authenticate)
	logx.Info("api key routes registered")

	container.FlagHandlers.RegisterRoutes(app, container.IAM.APIKeyMiddleware.Require())
	logx.Info("flag routes registered")

	app.Use(notFoundHandler)

	// Background services
	if err := container.IAM.CleanupService.Start(); err != nil {
		logx.Fatalf("failed to start session cleanup: %v", err)
	}

	startServer(app, cfg)
}

// ============================================================================
// Handler Functions
// ============================================================================

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": container.Config.App.Name,
		}

		if err := container.DB.Ping(); err != nil {
			health["db"] = "unhealthy"
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if err := container.Redis.Ping(c.UserContext()).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
		} else {
			health["redis"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.Get("X-Request-ID"),
	}).Errorf("request error: %v", err)

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":      fiberErr.Message,
			"code":       "FIBER_ERROR",
			"status":     fiberErr.Code,
			"request_id": c.Get("X-Request-ID"),
		})
	}

	e := errx.FromError(err)
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
	return c.Status(e.HTTPStatus).JSON(response)
}

// ============================================================================
// Server Lifecycle
// ============================================================================

func startServer(app *fiber.App, cfg *config.Config) {
	go func() {
		logx.Infof("server listening on port %d", cfg.App.Port)
		if err := app.Listen(fmtPort(cfg.App.Port)); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("received signal %v, shutting down", sig)

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("server forced to shutdown: %v", err)
	}

	logx.Info("server exited")
}

func fmtPort(port int) string {
	return ":" + strconv.Itoa(port)
}
