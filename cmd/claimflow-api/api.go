// Package main provides the ClaimFlow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/claimflow/claimflow/pkg/claims"
	"github.com/claimflow/claimflow/pkg/cmd"
	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/eventbus"
	"github.com/claimflow/claimflow/pkg/persistence"
	"github.com/claimflow/claimflow/pkg/receivers/webhook"
	"github.com/claimflow/claimflow/pkg/registry"
	"github.com/claimflow/claimflow/pkg/services"
	"github.com/claimflow/claimflow/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	engine   *engine.Engine
}

func NewAPI(log *slog.Logger, store persistence.Persistence, bus eventbus.EventBus) (*API, error) {
	reg, err := cmd.NewRegistry(log, claims.NewClient(log))
	if err != nil {
		return nil, err
	}

	eng := engine.New(log, store, reg).WithEventBus(bus)

	if err := cmd.RegisterRunWorkflow(reg, eng); err != nil {
		return nil, err
	}

	return &API{
		logger:   log,
		store:    store,
		registry: reg,
		engine:   eng,
	}, nil
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.store, a.registry)
	handlers := web.NewAPIHandlers(workflowService, a.engine, a.store.ExecutionRepository(), a.registry)
	receiver := webhook.NewReceiver(a.engine, a.store.WorkflowRepository(), a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ClaimFlow API")
	})

	handlers.RegisterRoutes(app)
	receiver.RegisterRoutes(app)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
