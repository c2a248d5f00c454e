package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vduarte/missions-api/internal/middleware"
	"github.com/vduarte/missions-api/internal/models"
	"github.com/vduarte/missions-api/internal/services"
	"github.com/vduarte/missions-api/internal/store"
)

// MissionHandler serves the mission endpoints. Reads come straight from the
// service's cache; writes go through its mutation operations.
type MissionHandler struct {
	svc      *services.MissionService
	validate *validator.Validate
}

func NewMissionHandler(svc *services.MissionService) *MissionHandler {
	return &MissionHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

// actor builds the acting user from the authenticated request context.
func actor(c *fiber.Ctx) services.Actor {
	id := middleware.GetUserID(c)
	if id == uuid.Nil {
		return services.Actor{}
	}
	return services.Actor{
		ID:   id.String(),
		Name: middleware.GetUserName(c),
	}
}

// missionError maps service/store errors onto HTTP responses.
func missionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mission not found",
		})
	case errors.Is(err, store.ErrStaleWrite):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Mission was changed by someone else, reload and retry",
		})
	case errors.Is(err, services.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update mission",
		})
	}
}

func (h *MissionHandler) GetMissions(c *fiber.Ctx) error {
	if day := c.Query("day"); day != "" {
		if !models.ValidDayOfWeek(day) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid day of week",
			})
		}
		missions := h.svc.GetMissionsByDay(day)
		if missions == nil {
			missions = []*models.Mission{}
		}
		return c.JSON(missions)
	}
	return c.JSON(h.svc.GetAllMissions())
}

func (h *MissionHandler) GetMission(c *fiber.Ctx) error {
	m, ok := h.svc.GetMissionByID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mission not found",
		})
	}
	return c.JSON(m)
}

func (h *MissionHandler) GetUnitMissions(c *fiber.Ctx) error {
	missions := h.svc.GetMissionsByUnitID(c.Params("unitId"))
	if missions == nil {
		missions = []*models.Mission{}
	}
	return c.JSON(missions)
}

func (h *MissionHandler) CreateMission(c *fiber.Ctx) error {
	var req models.CreateMissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !models.ValidDayOfWeek(req.DayOfWeek) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid day of week",
		})
	}

	m, err := h.svc.AddMission(req, actor(c))
	if err != nil {
		return missionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *MissionHandler) UpdateMission(c *fiber.Ctx) error {
	var req models.UpdateMissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.DayOfWeek != nil && !models.ValidDayOfWeek(*req.DayOfWeek) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid day of week",
		})
	}

	m, err := h.svc.UpdateMission(c.Params("id"), req, actor(c))
	if err != nil {
		return missionError(c, err)
	}
	return c.JSON(m)
}

func (h *MissionHandler) DeleteMission(c *fiber.Ctx) error {
	if err := h.svc.DeleteMission(c.Params("id"), actor(c)); err != nil {
		return missionError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *MissionHandler) UpdateUnitStatus(c *fiber.Ctx) error {
	var req models.UpdateUnitStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	m, err := h.svc.UpdateUnitStatus(c.Params("id"), c.Params("unitId"), req.Status, actor(c))
	if err != nil {
		return missionError(c, err)
	}
	return c.JSON(m)
}
