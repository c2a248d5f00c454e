package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vduarte/missions-api/internal/database"
	"github.com/vduarte/missions-api/internal/models"
)

func GetUnits(c *fiber.Ctx) error {
	var units []models.Unit
	if err := database.DB.Order("name ASC").Find(&units).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch units",
		})
	}
	return c.JSON(units)
}

func GetUnit(c *fiber.Ctx) error {
	var unit models.Unit
	if err := database.DB.Where("id = ?", c.Params("id")).First(&unit).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unit not found",
		})
	}
	return c.JSON(unit)
}

func CreateUnit(c *fiber.Ctx) error {
	var req models.CreateUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unit name is required",
		})
	}

	unit := models.Unit{Name: req.Name}
	if err := database.DB.Create(&unit).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create unit",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(unit)
}
