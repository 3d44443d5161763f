package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/roadwatch-kerala/backend/internal/handlers"
	"github.com/roadwatch-kerala/backend/internal/middleware"
	"github.com/roadwatch-kerala/backend/internal/services"
)

func Setup(
	app *fiber.App,
	verifier services.TokenVerifier,
	reportHandler *handlers.ReportHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Reports: anonymous submissions allowed, a present credential must
	// still verify.
	api.Post("/reports", middleware.OptionalAuth(verifier), reportHandler.Submit)
	api.Get("/reports", reportHandler.List)
	api.Get("/reports/plate/:plateNumber", reportHandler.ByPlate)
	api.Get("/stats", reportHandler.Stats)

	// Auth-backed endpoints, with a stricter limiter: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", middleware.RequireAuth(verifier), authHandler.Register)
	auth.Get("/profile", middleware.RequireAuth(verifier), authHandler.Profile)
	auth.Get("/reports", middleware.RequireAuth(verifier), authHandler.MyReports)
}
