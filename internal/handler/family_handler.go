package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/service"
	"github.com/puertonuevo/portal-api/internal/utils"
)

// FamilyHandler exposes ambiente membership lookups.
type FamilyHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewFamilyHandler constructs the handler.
func NewFamilyHandler(service service.ActivityService, logger zerolog.Logger) *FamilyHandler {
	return &FamilyHandler{
		service: service,
		logger:  logger.With().Str("component", "family_handler").Logger(),
	}
}

// Register attaches family routes.
func (h *FamilyHandler) Register(router fiber.Router) {
	router.Get("/me/ambientes", middleware.WithAuth(h.mine, middleware.AuthOptions{RequireUser: true}))
	router.Get("/:uid/ambientes", middleware.WithAuth(h.byUID, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *FamilyHandler) mine(c *fiber.Ctx) error {
	return h.respond(c, middleware.UserID(c))
}

func (h *FamilyHandler) byUID(c *fiber.Ctx) error {
	return h.respond(c, c.Params("uid"))
}

func (h *FamilyHandler) respond(c *fiber.Ctx, uid string) error {
	result, err := h.service.FamilyAmbientes(c.UserContext(), uid)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to resolve ambientes")
	}
	return utils.SendSuccess(c, "ambientes retrieved", result)
}
