package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/config"
	"github.com/fenilmodi00/ipo-calendar-sync/database"
	"github.com/fenilmodi00/ipo-calendar-sync/handlers"
	"github.com/fenilmodi00/ipo-calendar-sync/jobs"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	unified := cfg.ToUnifiedConfiguration()
	config.ConfigureLogging(&unified.Logging)

	location := unified.Sync.Location()

	// Store: Postgres when DATABASE_URL is set, memory otherwise
	var store services.IPOCalendarStore
	var healthCheck func() error
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.Migrate("database/schema.sql"); err != nil {
			logrus.Warnf("Migration warning: %v", err)
		}

		db = database.DB
		store = database.NewIPOCalendarRepository(db, location, unified.Database.MaxRetries)
		healthCheck = database.HealthCheck
	} else {
		logrus.Warn("DATABASE_URL not set, using in-memory IPO calendar store")
		store = database.NewMemoryIPOStore()
	}

	// Sources in priority order: 38 Communications first, then KIND
	fetchMetrics := shared.NewHTTPMetrics()
	fetcher := services.NewDocumentFetcher(unified.Service, fetchMetrics)
	clock := services.SystemClock(location)
	sources := []services.Source{
		services.NewThirtyEightSource(fetcher, unified.Sources.ThirtyEightURL, clock),
		services.NewKINDSource(fetcher, unified.Sources.KINDURL, clock),
	}

	reconciler := services.NewReconciler(store, services.ParseStatusOwnership(unified.Sync.StatusOwnership))
	syncService := services.NewIPOCalendarSyncService(
		reconciler,
		services.ParseMergeStrategy(unified.Sync.MergeStrategy),
		unified.Sync.SourceTimeout,
		sources...,
	)

	cacheService := services.NewCacheServiceWithConfig(unified.Cache.DefaultTTL, unified.Cache.MaxSize)
	defer cacheService.Stop()
	calendarService := services.NewIPOCalendarService(store, cacheService)
	syncService.OnSyncCompleted(func(services.SyncSummary) {
		calendarService.InvalidateCache()
	})

	logrus.WithFields(logrus.Fields{
		"fetch_driver":     unified.Service.FetchDriver,
		"merge_strategy":   unified.Sync.MergeStrategy,
		"status_ownership": unified.Sync.StatusOwnership,
		"source_timeout":   unified.Sync.SourceTimeout,
		"cache_ttl":        unified.Cache.DefaultTTL,
		"timezone":         location.String(),
	}).Info("IPO calendar sync services initialized")

	// Scheduled sync
	scheduler := jobs.NewCronScheduler(location)
	syncJob := jobs.NewIPOCalendarSyncJob(syncService)
	if err := syncJob.Register(scheduler, unified.Sync.CronSpec); err != nil {
		logrus.Fatalf("Failed to schedule IPO calendar sync: %v", err)
	}
	cleanupJob := jobs.NewCacheCleanupJob(calendarService)
	if err := cleanupJob.Register(scheduler, unified.Cache.CleanupCron); err != nil {
		logrus.Fatalf("Failed to schedule cache cleanup: %v", err)
	}
	scheduler.Start()

	if unified.Sync.RunOnStartup {
		go syncJob.Run()
	}

	// Handlers
	calendarHandler := handlers.NewIPOCalendarHandler(calendarService)
	adminHandler := handlers.NewAdminHandler(syncService, calendarService, location)
	adminHandler.FetchMetrics = fetchMetrics
	admin := handlers.AdminHandlers{
		Sync:        adminHandler,
		Cache:       handlers.NewCacheHandler(calendarService),
		Performance: handlers.NewPerformanceHandler(db, calendarService),
	}

	// Setup Fiber
	app := fiber.New()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", handlers.HealthCheck(healthCheck))
	handlers.RegisterRoutes(app, calendarHandler, admin, cfg.AdminToken)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logrus.Info("Shutting down")
		<-scheduler.Stop().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			logrus.Errorf("Server shutdown failed: %v", err)
		}
	}()

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
