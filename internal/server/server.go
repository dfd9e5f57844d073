package server

import (
	"path/filepath"
	"strings"

	"ai-docfill-be/internal/bootstrap"
	"ai-docfill-be/internal/config"
	"ai-docfill-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	log := container.Logger

	// Initialize Fiber App
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.App.BodyLimitMB * 1024 * 1024,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return serverutils.WriteError(ctx, log, err)
		},
	})

	// Middleware
	origins := cfg.App.CorsAllowedOrigins
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		// Browsers reject credentials with a wildcard origin and fiber
		// refuses the combination.
		AllowCredentials: !strings.Contains(origins, "*"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(log))

	// Routes
	registerRoutes(app, container)

	// Frontend build, served last so API routes win.
	buildDir := cfg.App.FrontendBuildDir
	app.Static("/static", filepath.Join(buildDir, "static"))
	app.Get("/*", func(ctx *fiber.Ctx) error {
		return ctx.SendFile(filepath.Join(buildDir, "index.html"))
	})

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
	s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{
		"addr": "http://localhost:" + s.cfg.App.Port,
	})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok"})
	})

	c.DocumentController.RegisterRoutes(app)
	c.ChatController.RegisterRoutes(app)
}
