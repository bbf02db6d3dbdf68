package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/billing"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/config"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/events"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/handlers"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/middleware"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/repository"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, publisher *events.Publisher) error {
	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	var gateway *billing.OmiseGateway
	if cfg.GatewayConfigured() {
		var err error
		gateway, err = billing.NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			return err
		}
	} else {
		log.Println("Payment gateway not configured; credit purchases disabled")
	}

	bookingService := services.NewBookingService(db, bookingRepo, userRepo, publisherOrNil(publisher), cfg.CreditUnitValue)
	creditService := services.NewCreditService(db, creditRepo, userRepo, packageRepo, gatewayOrNil(gateway), cfg.Currency)
	directoryService := services.NewDirectoryService(userRepo)
	subscriptionService := services.NewSubscriptionService(db, subscriptionRepo, userRepo, gatewayOrNil(gateway), cfg.Currency)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	creditHandler := handlers.NewCreditHandler(creditService)
	helperHandler := handlers.NewHelperHandler(userRepo, directoryService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Put("/profile", authHandler.UpdateProfile)
	users.Delete("/me", authHandler.Deactivate)

	helpers := authProtected.Group("/helpers")
	helpers.Get("", helperHandler.ListHelpers)
	helpers.Get("/recommended", helperHandler.GetRecommendedHelpers)
	helpers.Get("/:id", helperHandler.GetHelperDetail)

	bookings := authProtected.Group("/bookings")
	bookings.Post("", bookingHandler.Schedule)
	bookings.Get("", bookingHandler.List)
	bookings.Get("/:id", bookingHandler.Get)
	bookings.Put("/:id/respond", bookingHandler.Respond)
	bookings.Put("/:id/start", bookingHandler.Start)
	bookings.Put("/:id/complete", bookingHandler.Complete)
	bookings.Put("/:id/cancel", bookingHandler.Cancel)
	bookings.Post("/:id/rating", bookingHandler.Rate)

	credits := authProtected.Group("/credits")
	credits.Get("/packages", creditHandler.Packages)
	credits.Get("/balance", creditHandler.Balance)
	credits.Get("/transactions", creditHandler.Transactions)
	credits.Post("/purchase", creditHandler.Purchase)

	subscriptions := authProtected.Group("/subscriptions")
	subscriptions.Get("/plans", subscriptionHandler.Plans)
	subscriptions.Get("/current", subscriptionHandler.Current)
	subscriptions.Post("/subscribe", subscriptionHandler.Subscribe)
	subscriptions.Post("/cancel", subscriptionHandler.Cancel)
	subscriptions.Post("/reactivate", subscriptionHandler.Reactivate)
	subscriptions.Put("/auto-renew", subscriptionHandler.AutoRenew)
	subscriptions.Get("/payments", subscriptionHandler.Payments)

	return nil
}

// publisherOrNil keeps a nil *events.Publisher from becoming a non-nil
// interface value inside the booking service.
func publisherOrNil(p *events.Publisher) services.BookingEventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func gatewayOrNil(g *billing.OmiseGateway) services.PaymentGateway {
	if g == nil {
		return nil
	}
	return g
}
