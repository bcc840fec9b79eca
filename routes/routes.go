package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/controllers"
	"github.com/meinhoongagan/clinic-booking/middleware"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
	Log         zerolog.Logger
}

// NewApp builds the fiber app with every route mounted.
func NewApp(h *controllers.Controller, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "clinic-booking"})

	origins := "*"
	if len(opts.CORSOrigins) > 0 {
		origins = strings.Join(opts.CORSOrigins, ",")
	}
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(opts.Log))
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	SetupOpsRoutes(app, opts.Gatherer, opts.Checks)
	SetupAuthRoutes(app, h)
	SetupClinicRoutes(app, h, opts.JWTSecret)
	SetupBookingRoutes(app, h, opts.JWTSecret)
	return app
}
