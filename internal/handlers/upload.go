package handlers

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vduarte/missions-api/internal/models"
)

// Submission size limit and accepted document types.
const maxSubmissionSize = 10 * 1024 * 1024 // 10MB

var allowedSubmissionExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true,
	".jpg": true, ".jpeg": true, ".png": true,
}

// SubmitUnitFile receives a unit's mission file, stores the bytes locally
// and records the metadata on the mission. The unit's status becomes
// Cumprida as part of the same write.
func (h *MissionHandler) SubmitUnitFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedSubmissionExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File type not allowed",
		})
	}

	if file.Size > maxSubmissionSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File must be under 10MB",
		})
	}

	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create uploads directory",
		})
	}

	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	savePath := filepath.Join(uploadsDir, filename)
	if err := c.SaveFile(file, savePath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
		})
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}

	meta := models.SubmittedFile{
		Name:        file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		URL:         fmt.Sprintf("/uploads/%s", filename),
	}

	m, err := h.svc.SetUnitFile(c.Params("id"), c.Params("unitId"), meta, actor(c))
	if err != nil {
		return missionError(c, err)
	}
	return c.JSON(m)
}

// ClearUnitFile removes a unit's submission and resets it to Pendente. The
// stored bytes are left behind; only the mission metadata is cleared.
func (h *MissionHandler) ClearUnitFile(c *fiber.Ctx) error {
	m, err := h.svc.ClearUnitFile(c.Params("id"), c.Params("unitId"), actor(c))
	if err != nil {
		return missionError(c, err)
	}
	return c.JSON(m)
}
