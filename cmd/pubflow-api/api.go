// Package main provides the Pubflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pubflow/pubflow/pkg/automation"
	"github.com/pubflow/pubflow/pkg/blame"
	"github.com/pubflow/pubflow/pkg/cmd"
	"github.com/pubflow/pubflow/pkg/condition"
	"github.com/pubflow/pubflow/pkg/engine"
	"github.com/pubflow/pubflow/pkg/eventbus"
	"github.com/pubflow/pubflow/pkg/expression"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/scheduler"
	"github.com/pubflow/pubflow/pkg/services"
	"github.com/pubflow/pubflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	redisURL    string
	maxDepth    int
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	redisURL string,
	maxDepth int,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		redisURL:    redisURL,
		maxDepth:    maxDepth,
	}
}

func (a *API) App() *fiber.App {
	// The scheduler here only enqueues; the worker polls the shared store and
	// replays due jobs.
	var executor *engine.Executor

	jobStore := cmd.NewJobStore(a.logger, a.redisURL)
	jobScheduler := scheduler.NewScheduler(jobStore, cmd.NewJobHandler(func() *engine.Executor {
		return executor
	}), a.logger)

	registry := cmd.NewRegistry(a.logger, jobScheduler)

	executor = engine.NewExecutor(engine.Config{
		Persistence: a.persistence,
		Registry:    registry,
		Conditions:  condition.NewEvaluator(expression.NewEvaluator()),
		Blame:       blame.NewRecorder(a.logger),
		Scheduler:   jobScheduler,
		Notifier:    a.eventBus,
		MaxDepth:    a.maxDepth,
		Logger:      a.logger,
	})

	validator := automation.NewValidator(a.persistence, a.maxDepth, a.logger)

	pubService := services.NewPubService(a.persistence, a.eventBus, a.logger)
	instanceService := services.NewActionInstanceService(a.persistence, registry, a.logger)
	automationService := services.NewAutomationService(a.persistence, validator, a.logger)

	handlers := web.NewAPIHandlers(pubService, instanceService, automationService, executor, registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pubflow API")
	})

	p := app.Group("/pubs")
	p.Post("/", handlers.CreatePub)
	p.Get("/:id", handlers.GetPub)
	p.Post("/:id/move", handlers.MovePub)
	p.Post("/:id/values", handlers.SetPubValue)
	p.Get("/:id/history", handlers.GetPubHistory)
	p.Get("/:id/runs", handlers.GetPubRuns)

	i := app.Group("/action-instances")
	i.Post("/", handlers.SaveActionInstance)
	i.Get("/:id", handlers.GetActionInstance)
	i.Patch("/:id", handlers.SaveActionInstance)
	i.Delete("/:id", handlers.DeleteActionInstance)
	i.Post("/:id/run", handlers.RunActionInstance)

	au := app.Group("/automations")
	au.Post("/", handlers.SaveAutomation)
	au.Get("/:id", handlers.GetAutomation)
	au.Patch("/:id", handlers.SaveAutomation)
	au.Delete("/:id", handlers.DeleteAutomation)

	s := app.Group("/stages/:stageId")
	s.Get("/action-instances", handlers.ListStageActionInstances)
	s.Get("/automations", handlers.ListStageAutomations)

	app.Get("/actions", handlers.ListActionTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
