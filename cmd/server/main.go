package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, sweeper := wireServer(db, redisClient, nrApp, cfg)

	// The sweep keeps expiry moving even when no courier ever touches an
	// offer; it runs until shutdown.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server plus the
// background expiry sweeper.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.ExpirySweeper) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	courierRepo := postgres.NewCourierRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	ruleRepo := postgres.NewAutoAcceptRuleRepository(db)
	locationRepo := postgres.NewLocationRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService()
	locatorService := service.NewLocatorService(locationStore, cacheStore, courierRepo, jobRepo, cfg.Dispatch.FreshnessWindow)

	surgeConfig := service.DefaultSurgeConfig()
	surgeConfig.RadiusKm = cfg.Dispatch.SurgeRadiusKm
	surgeConfig.RecencyWindow = cfg.Dispatch.SurgeRecencyWindow
	surgeService := service.NewSurgeService(locatorService, jobRepo, surgeConfig)

	earningsService := service.NewEarningsService(cfg.Dispatch.PerKmRate, cfg.Dispatch.PerMinuteRate, cfg.Dispatch.AvgSpeedKmh)
	offerService := service.NewOfferService(offerRepo, cfg.Dispatch.OfferTTL)
	autoAcceptService := service.NewAutoAcceptService(ruleRepo)
	acceptanceService := service.NewAcceptanceService(assignmentRepo, lockStore, notificationService)

	assignmentService := service.NewAssignmentService(
		locatorService,
		surgeService,
		earningsService,
		offerService,
		autoAcceptService,
		acceptanceService,
		jobRepo,
		offerRepo,
		lockStore,
		notificationService,
		service.AssignConfig{
			InitialRadiusKm:           cfg.Dispatch.SearchRadiusKm,
			MaxRadiusKm:               cfg.Dispatch.MaxRadiusKm,
			MaxCandidates:             cfg.Dispatch.MaxCandidates,
			MaxEscalationSteps:        cfg.Dispatch.MaxEscalationSteps,
			MaxOffersBeforeEscalation: cfg.Dispatch.MaxOffersBeforeEscalation,
		},
	)

	jobService := service.NewJobService(jobRepo, offerRepo, assignmentService)
	courierService := service.NewCourierService(locationStore, cacheStore, courierRepo, locationRepo, ruleRepo)
	sweeper := service.NewExpirySweeper(offerService, assignmentService, cfg.Dispatch.SweepInterval)

	// Initialize handlers.
	jobHandler := handler.NewJobHandler(jobService)
	courierHandler := handler.NewCourierHandler(courierService)
	offerHandler := handler.NewOfferHandler(offerService, acceptanceService, assignmentService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		JobHandler:     jobHandler,
		CourierHandler: courierHandler,
		OfferHandler:   offerHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sweeper
}
