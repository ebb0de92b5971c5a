// The gamification server: REST API, scheduled maintenance jobs and a
// Prometheus exporter for the nightlife directory's XP/badge/mission system.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/nightpulse/gamification/internal/api/gamification"
	"github.com/nightpulse/gamification/internal/api/middleware"
	"github.com/nightpulse/gamification/internal/cache"
	"github.com/nightpulse/gamification/internal/config"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/internal/service/awards"
	"github.com/nightpulse/gamification/internal/service/badges"
	"github.com/nightpulse/gamification/internal/service/leaderboard"
	"github.com/nightpulse/gamification/internal/service/missions"
	"github.com/nightpulse/gamification/internal/service/progress"
	"github.com/nightpulse/gamification/internal/service/scheduler"
	"github.com/nightpulse/gamification/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	log.Info().
		Int("port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Msg("Starting gamification server")

	// Database
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	xpRepo := repository.NewXPRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	socialRepo := repository.NewSocialRepository(db)

	// Services
	progressService := progress.NewService(progressRepo, log)
	badgeService := badges.NewService(badgeRepo, progressRepo, userRepo, log)
	missionService := missions.NewService(missionRepo, log)
	awardService := awards.NewService(progressRepo, xpRepo, missionService, badgeService, log)
	leaderboardService := leaderboard.NewService(progressRepo, badgeRepo, redisCache, log)

	// Scheduler
	schedulerService := scheduler.NewService(cfg, progressRepo, badgeService, leaderboardService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP API
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if err := redisCache.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := gamification.NewHandler(gamification.Deps{
		ProgressService:    progressService,
		AwardService:       awardService,
		BadgeService:       badgeService,
		MissionService:     missionService,
		LeaderboardService: leaderboardService,
		SocialRepo:         socialRepo,
		CounterRepo:        progressRepo,
		Log:                log,
	})

	api := router.Group("/api/gamification")
	api.Use(
		middleware.AuthRequired(&cfg.Auth, log),
		middleware.CSRFProtection(&cfg.Auth, log),
	)
	handler.RegisterRoutes(api)

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", cfg.Auth.CSRFHeaderName},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsWrapper.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics exporter on its own port
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Int("port", cfg.Metrics.Port).Str("path", cfg.Metrics.Path).Msg("Metrics exporter listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}
}
