package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api"
	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/batch"
	"github.com/stitts-dev/gridiron-sim/internal/jobs"
	"github.com/stitts-dev/gridiron-sim/internal/provider"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/database"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

const demoTeams = 8

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runs := store.NewRunStore(db.DB)
	if err := runs.Migrate(); err != nil {
		log.Fatalf("Failed to migrate runs table: %v", err)
	}

	// Result cache is optional; without REDIS_URL every run is computed
	var resultCache *cache.ResultCache
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		defer redisClient.Close()
		resultCache = cache.NewResultCache(redisClient, cfg.ResultCacheTTL, cfg.CircuitBreakerThreshold, 30*time.Second, log)
		if err := resultCache.Ping(context.Background()); err != nil {
			log.WithError(err).Warn("Redis unavailable, results will not be cached until it recovers")
		}
	}

	// Load the probability model and rosters
	model, err := provider.LoadModelOrDefault(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	teams, err := provider.LoadTeamsOrDefault(cfg.TeamsPath, demoTeams, cfg.SimSeed)
	if err != nil {
		log.Fatalf("Failed to load teams: %v", err)
	}
	settings, err := cfg.EngineSettings()
	if err != nil {
		log.Fatalf("Invalid engine settings: %v", err)
	}
	engine, err := simulator.NewDefaultEngine(settings, model.Tendencies, model.Outcomes)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	log.WithFields(logrus.Fields{
		"teams":    len(teams),
		"overtime": settings.OvertimeRule,
	}).Info("Simulation engine ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsHub := websocket.NewProgressHub(log)
	go wsHub.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst, 10*time.Minute)

	// Housekeeping jobs
	scheduler := jobs.NewScheduler(log)
	pruner := jobs.NewRunPruner(runs, cfg.RunRetentionDays, log)
	if err := scheduler.Schedule("prune-runs", cfg.RetentionCron, pruner.Run); err != nil {
		log.Fatalf("Failed to schedule run retention: %v", err)
	}
	if err := scheduler.Schedule("sweep-rate-limits", "@every 10m", func() { limiter.Sweep(time.Now()) }); err != nil {
		log.Fatalf("Failed to schedule rate limit sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	simulationHandler := handlers.NewSimulationHandler(ctx, batch.NewRunner(engine, logger.WithService("runner")), teams, runs, resultCache, wsHub, cfg, log)
	healthHandler := handlers.NewHealthHandler(db, resultCache, wsHub, log)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	api.SetupRoutes(router, simulationHandler, healthHandler, wsHub, limiter)

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// cancel background runs and let them record their failure
	cancel()
	simulationHandler.Wait()

	log.Info("Server exited")
}
