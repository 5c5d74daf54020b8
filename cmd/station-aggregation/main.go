package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/sgweather/station-aggregation/internal/api/http"
	"github.com/sgweather/station-aggregation/internal/collector"
	"github.com/sgweather/station-aggregation/internal/config"
	"github.com/sgweather/station-aggregation/internal/scheduler"
	"github.com/sgweather/station-aggregation/internal/station"
	"github.com/sgweather/station-aggregation/internal/store"
)

func main() {
	// Load configuration (reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound feed calls; per-attempt deadlines
	// are applied in the collector.
	httpClient := &http.Client{}

	// Station registry, warm-started from the previous run when a file
	// exists.
	registry := station.NewRegistry(cfg.RegistryFile)
	if err := registry.Load(); err != nil {
		log.Printf("INFO: starting with an empty station registry: %v", err)
	}

	resolver := station.NewResolver()
	scorer := station.NewScorer(cfg.ReferenceLocations, cfg.ScoringWeights())
	selector := station.NewSelector(resolver, cfg.SelectionConfig())
	client := collector.NewClient(httpClient, cfg.FetchTimeout, cfg.BackoffConfig())

	// In-memory snapshot history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Core service orchestrating feeds, discovery, selection and store.
	service := collector.NewService(registry, resolver, scorer, selector, client, memStore, collector.ServiceConfig{
		Endpoints:        cfg.Endpoints(),
		InterCallDelay:   cfg.InterCallDelay,
		ExpectedStations: cfg.ExpectedStations,
		Quality:          cfg.QualityWeights(),
	})

	// Scheduler that periodically runs a collection cycle.
	sched := scheduler.New(service, cfg.CollectInterval, cfg.CollectTimeout)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "station-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "station-aggregation",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}

	// Persist discovery progress for the next run.
	if err := registry.Save(); err != nil {
		log.Printf("error saving station registry: %v", err)
	}
}
