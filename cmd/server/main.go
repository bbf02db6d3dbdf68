package main

import (
	"log"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/config"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/database"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/events"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// 3. Connect to the event broker; the relay consumes booking lifecycle
	// events from here. Publishing is optional and off when AMQP_URL is unset.
	var publisher *events.Publisher
	if cfg.AMQPUrl != "" {
		publisher, err = events.NewPublisher(cfg.AMQPUrl, cfg.EventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to event broker: %v", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Printf("Failed to close event publisher: %v", err)
			}
		}()
	} else {
		log.Println("AMQP_URL not set; booking lifecycle events disabled")
	}

	// 4. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if err := routes.RegisterRoutes(app, cfg, database.DB, publisher); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 5. Start Server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
