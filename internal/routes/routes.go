package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/vduarte/missions-api/internal/handlers"
	"github.com/vduarte/missions-api/internal/middleware"
)

func Setup(app *fiber.App, missions *handlers.MissionHandler, hub *handlers.Hub) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", handlers.GetMe)

	// Units (org subdivisions; names resolve mission progress for display)
	units := protected.Group("/units")
	units.Get("/", handlers.GetUnits)
	units.Get("/:id", handlers.GetUnit)
	units.Post("/", middleware.AdminOnly(), handlers.CreateUnit)
	units.Get("/:unitId/missions", missions.GetUnitMissions)

	// Missions
	m := protected.Group("/missions")
	m.Get("/", missions.GetMissions)
	m.Get("/:id", missions.GetMission)
	m.Post("/", middleware.AdminOnly(), missions.CreateMission)
	m.Put("/:id", middleware.AdminOnly(), missions.UpdateMission)
	m.Delete("/:id", middleware.AdminOnly(), missions.DeleteMission)

	// Per-unit progress
	m.Put("/:id/units/:unitId/status", missions.UpdateUnitStatus)
	m.Post("/:id/units/:unitId/file", missions.SubmitUnitFile)
	m.Delete("/:id/units/:unitId/file", missions.ClearUnitFile)

	// Submitted files
	app.Static("/uploads", "./uploads")

	// WebSocket for real-time mission updates
	app.Use("/ws", handlers.WebSocketUpgrade())
	app.Get("/ws/missions", websocket.New(hub.HandleWebSocket))
}
