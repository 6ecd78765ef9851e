package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/puertonuevo/portal-api/internal/config"
	"github.com/puertonuevo/portal-api/internal/handler"
	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler *handler.ActivityHandler
	FamilyHandler   *handler.FamilyHandler
	AuditHandler    *handler.AuditHandler
	HealthProbes    map[string]handler.HealthProbe
	JWTMiddleware   fiber.Handler

	// PublishLimit caps activity creations per user and minute. Zero keeps
	// the default of 10.
	PublishLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	health := handler.HealthCheck(cfg, deps.HealthProbes)
	app.Get("/health", health)
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", health)

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ActivityHandler != nil {
		activities := api.Group("/activities", jwtMiddleware)
		deps.ActivityHandler.Register(activities, middleware.RateLimit("activities.publish", deps.PublishLimit, time.Minute))
	}

	if deps.FamilyHandler != nil {
		families := api.Group("/families", jwtMiddleware)
		deps.FamilyHandler.Register(families)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit", jwtMiddleware, middleware.RequireRole(models.RoleCoordinacion, models.RoleSuperadmin))
		deps.AuditHandler.Register(audit)
	}
}
