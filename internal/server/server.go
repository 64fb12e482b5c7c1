package server

import (
	"context"
	"log"

	"eeg-workload-be/internal/bootstrap"
	"eeg-workload-be/internal/config"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/websocket"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(ctx context.Context, cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             10 * 1024 * 1024, // 10MB
		ErrorHandler:          serverutils.ErrorHandlerMiddleware(),
		DisableStartupMessage: cfg.App.Environment == "production",
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type, Content-Disposition",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	registerRoutes(ctx, app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s (producers: ws://localhost:%s/ws)", s.cfg.App.Port, s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	c.HealthController.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))
	app.Get("/ws", websocket.UpgradeRequired, c.Gateway.Handler(ctx))
	c.WatchHandler.RegisterRoutes(app)

	api := app.Group("/api")
	if cfg.App.JWTSecret != "" {
		api.Use(serverutils.JwtMiddleware(cfg.App.JWTSecret))
	}

	c.SessionController.RegisterRoutes(api)
	c.RealtimeController.RegisterRoutes(api)
	c.HistoryController.RegisterRoutes(api)
	c.IngestController.RegisterRoutes(api)
	c.LogController.RegisterRoutes(api)
}
