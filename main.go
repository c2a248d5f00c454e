package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/vduarte/missions-api/internal/config"
	"github.com/vduarte/missions-api/internal/database"
	"github.com/vduarte/missions-api/internal/handlers"
	"github.com/vduarte/missions-api/internal/realtime"
	"github.com/vduarte/missions-api/internal/routes"
	"github.com/vduarte/missions-api/internal/services"
	"github.com/vduarte/missions-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	feed := realtime.NewFeed()
	missionStore := store.NewMissionStore(database.DB)
	missionService := services.NewMissionService(missionStore, feed)
	if err := missionService.Start(); err != nil {
		log.Fatalf("Failed to load missions: %v", err)
	}
	defer missionService.Stop()

	hub := handlers.NewHub()
	stopHub := hub.Run(feed)
	defer stopHub()

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	routes.Setup(app, handlers.NewMissionHandler(missionService), hub)

	log.Fatal(app.Listen(":" + cfg.Port))
}
