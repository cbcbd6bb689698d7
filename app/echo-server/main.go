package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appmetrics "github.com/kyle-eros/eros-scheduling-sub002/app/echo-server/metrics"
	"github.com/kyle-eros/eros-scheduling-sub002/app/echo-server/router"
	"github.com/kyle-eros/eros-scheduling-sub002/business/assignment"
	"github.com/kyle-eros/eros-scheduling-sub002/business/feedback"
	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/internal/middleware"
	"github.com/kyle-eros/eros-scheduling-sub002/internal/repository/notification"
	psqlRepo "github.com/kyle-eros/eros-scheduling-sub002/internal/repository/postgres"
	redisRepo "github.com/kyle-eros/eros-scheduling-sub002/internal/repository/redis"
	"github.com/kyle-eros/eros-scheduling-sub002/internal/rest"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/config"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/database"
	redisdb "github.com/kyle-eros/eros-scheduling-sub002/pkg/database/redis"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting caption selection engine", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer func() {
		if err := redisdb.CloseRedisClient(redisClient); err != nil {
			logger.Error("Redis close error", "error", err)
		}
	}()

	// Init alert webhook
	alertWebhook := notification.NewWebhookRepository(
		notification.WebhookConfig{
			WebhookURL:        cfg.Alerts.WebhookURL,
			BasicAuthUsername: cfg.Alerts.BasicAuthUsername,
			BasicAuthPassword: cfg.Alerts.BasicAuthPassword,
		},
	)

	// Init repo
	captionRepo := psqlRepo.NewCaptionRepository(db)
	statRepo := psqlRepo.NewBanditStatRepository(db)
	assignmentRepo := psqlRepo.NewAssignmentRepository(db)
	outcomeRepo := psqlRepo.NewOutcomeRepository(db)
	selectionCfgRepo := psqlRepo.NewSelectionConfigRepository(db)
	patternCache := redisRepo.NewPatternCache(redisClient)
	tokenRepo := redisRepo.NewTokenRepository(redisClient)

	// Init service
	selectionCfg := selection.DefaultConfig()
	selectionCfg.CooldownDays = cfg.Selection.CooldownDays
	selectionCfg.ExpiryDays = cfg.Selection.ExpiryDays
	selectionCfg.ExplorationRate = cfg.Selection.ExplorationRate
	selectionCfg.ConfidenceLevel = cfg.Selection.ConfidenceLevel

	selectionService := selection.NewService(
		captionRepo,
		statRepo,
		assignmentRepo,
		selectionCfgRepo,
		patternCache,
		alertWebhook,
		nil,
		selectionCfg,
	)

	locker := assignment.NewLocker(assignmentRepo, alertWebhook, patternCache, cfg.Selection.CooldownDays, cfg.Selection.ExpiryDays)
	sweeper := assignment.NewSweeper(assignmentRepo)

	feedbackCfg := feedback.DefaultConfig()
	feedbackCfg.HalfLifeDays = cfg.Feedback.HalfLifeDays
	feedbackCfg.UpdatesPerDay = cfg.Feedback.UpdatesPerDay
	feedbackCfg.CountCap = cfg.Feedback.CountCap
	feedbackCfg.LookbackHours = cfg.Feedback.LookbackHours
	feedbackCfg.ConfidenceLevel = cfg.Selection.ConfidenceLevel

	updater := feedback.NewUpdater(outcomeRepo, statRepo, feedbackCfg)
	runner := feedback.NewRunner(updater, sweeper, cfg.Feedback.IntervalHours, cfg.Feedback.SweepHourLocal)

	// Init handler
	selectionHandler := rest.NewSelectionHandler(selectionService)
	assignmentHandler := rest.NewAssignmentHandler(locker)
	feedbackHandler := rest.NewFeedbackHandler(outcomeRepo, updater)
	selectionAdminHandler := rest.NewSelectionAdminHandler(selectionCfgRepo)
	authAdminHandler := rest.NewAuthAdminHandler(tokenRepo)

	// Init metrics
	metrics.Init()
	appmetrics.Init()

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth middleware; the Redis-backed variant enforces the provisioned
	// session on top of the JWT signature
	authRequired := middleware.AuthMiddleware()
	if cfg.JWT.RequireRedisToken {
		authRequired = middleware.AuthMiddlewareWithRedis(tokenRepo)
	}

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupSelectionRoutes(api, selectionHandler, authRequired)
	router.SetupAssignmentRoutes(api, assignmentHandler, authRequired)
	router.SetupFeedbackRoutes(api, feedbackHandler, authRequired)
	router.SetupSelectionAdminRoutes(api, selectionAdminHandler, authRequired)
	router.SetupAuthAdminRoutes(api, authAdminHandler, authRequired)

	// Background feedback loop + nightly expiry sweep
	if err := runner.Start(); err != nil {
		logger.Fatal("Failed to start feedback runner", "error", err)
	}

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	runner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
