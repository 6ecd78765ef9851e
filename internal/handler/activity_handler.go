package handler

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/puertonuevo/portal-api/internal/dto"
	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/service"
	"github.com/puertonuevo/portal-api/internal/utils"
)

// ActivityHandler exposes the ambiente activity endpoints.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires activity routes. createGuards run before publishing, e.g. a
// rate limiter.
func (h *ActivityHandler) Register(router fiber.Router, createGuards ...fiber.Handler) {
	staffOnly := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	createChain := append(append([]fiber.Handler{}, createGuards...), middleware.WithAuth(h.create, staffOnly))

	router.Get("/categories", h.categories)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", createChain...)
	router.Patch("/:id", middleware.WithAuth(h.update, staffOnly))
	router.Delete("/:id", middleware.WithAuth(h.delete, staffOnly))
}

func (h *ActivityHandler) categories(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "categories retrieved", h.service.Categories())
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	sinceDays, err := parseOptionalQueryInt(c, "sinceDays", "since_days")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid sinceDays")
	}
	limit, err := parseOptionalQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.ActivityListRequest{
		SinceDays: sinceDays,
		Limit:     limit,
		Ambientes: splitAndTrim(strings.ToLower(c.Query("ambiente"))),
	}

	if !models.IsStaffRole(middleware.UserRole(c)) {
		visible, err := h.familyAmbientes(c, req.Ambientes)
		if err != nil {
			return sendServiceError(c, h.logger, err, "failed to resolve family ambientes")
		}
		if len(visible) == 0 {
			empty := dto.ActivityListResponse{Items: []dto.ActivityResponse{}}
			return utils.OK(c, empty, "activities retrieved", fiber.Map{"ambientes": visible})
		}
		req.Ambientes = visible
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list activities")
	}

	return utils.OK(c, result, "activities retrieved", fiber.Map{"ambientes": req.Ambientes})
}

func (h *ActivityHandler) get(c *fiber.Ctx) error {
	activity, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load activity")
	}

	if !models.IsStaffRole(middleware.UserRole(c)) {
		visible, err := h.familyAmbientes(c, []string{activity.Ambiente})
		if err != nil {
			return sendServiceError(c, h.logger, err, "failed to resolve family ambientes")
		}
		if len(visible) == 0 {
			return utils.SendError(c, fiber.StatusNotFound, "activity not found")
		}
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}

func (h *ActivityHandler) create(c *fiber.Ctx) error {
	payload, files, err := parseCreateRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.CreatedBy = middleware.UserID(c)
	payload.CreatedByRole = middleware.UserRole(c)
	payload.CreatedByName = middleware.UserName(c)

	activity, err := h.service.Create(c.UserContext(), payload, files)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to publish activity")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity published", activity)
}

func (h *ActivityHandler) update(c *fiber.Ctx) error {
	var payload dto.ActivityUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.IsEmpty() {
		return utils.SendError(c, fiber.StatusBadRequest, "no fields to update")
	}

	activity, err := h.service.UpdateMeta(c.UserContext(), c.Params("id"), payload, auditActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update activity")
	}

	return utils.SendSuccess(c, "activity updated", activity)
}

func (h *ActivityHandler) delete(c *fiber.Ctx) error {
	current, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load activity")
	}

	result, err := h.service.Delete(c.UserContext(), current.ID, current.Items, auditActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete activity")
	}

	message := "activity deleted"
	if len(result.Warnings) > 0 {
		message = "activity deleted, some attachments could not be removed"
		requestLogger(h.logger, c).Warn().Str("activity_id", result.ID).Strs("warnings", result.Warnings).Msg("attachment cleanup incomplete")
	}
	return utils.SendSuccess(c, message, result)
}

// familyAmbientes narrows requested to the ambientes the current family may
// see. An empty request means all of them.
func (h *ActivityHandler) familyAmbientes(c *fiber.Ctx, requested []string) ([]string, error) {
	resolved, err := h.service.FamilyAmbientes(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return resolved.Ambientes, nil
	}

	visible := make([]string, 0, len(requested))
	for _, ambiente := range resolved.Ambientes {
		for _, wanted := range requested {
			if ambiente == wanted {
				visible = append(visible, ambiente)
				break
			}
		}
	}
	return visible, nil
}

func parseCreateRequest(c *fiber.Ctx) (dto.ActivityCreateRequest, []*multipart.FileHeader, error) {
	var payload dto.ActivityCreateRequest
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&payload); err != nil {
			return dto.ActivityCreateRequest{}, nil, err
		}
		return payload, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return dto.ActivityCreateRequest{}, nil, err
	}

	payload = dto.ActivityCreateRequest{
		Title:          formValue(form, "title"),
		Description:    formValue(form, "description"),
		Ambiente:       formValue(form, "ambiente"),
		Category:       formValue(form, "category"),
		CustomCategory: formValue(form, "custom_category", "customCategory"),
		DueDate:        formValue(form, "due_date", "dueDate"),
	}
	links, err := parseLinkValues(form.Value["links"])
	if err != nil {
		return dto.ActivityCreateRequest{}, nil, err
	}
	payload.Links = links

	return payload, form.File["files"], nil
}

func formValue(form *multipart.Form, keys ...string) string {
	for _, key := range keys {
		if values := form.Value[key]; len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// parseLinkValues accepts repeated plain URLs, single JSON objects or a JSON
// array of {label, url}.
func parseLinkValues(values []string) ([]dto.LinkInput, error) {
	links := make([]dto.LinkInput, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "["):
			var batch []dto.LinkInput
			if err := json.Unmarshal([]byte(trimmed), &batch); err != nil {
				return nil, err
			}
			links = append(links, batch...)
		case strings.HasPrefix(trimmed, "{"):
			var link dto.LinkInput
			if err := json.Unmarshal([]byte(trimmed), &link); err != nil {
				return nil, err
			}
			links = append(links, link)
		default:
			links = append(links, dto.LinkInput{URL: trimmed})
		}
	}
	return links, nil
}
