package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/controllers"
	"github.com/aIcoder504/apbmt-2025-conference-system/middleware"
	"github.com/aIcoder504/apbmt-2025-conference-system/routes"
	"github.com/aIcoder504/apbmt-2025-conference-system/services"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	settings, err := config.Load()
	if err != nil {
		config.Logger.Fatal().Err(err).Msg("load configuration")
	}

	logFile, _ := config.InitLogging(settings.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}
	if envErr != nil {
		config.Logger.Info().Msg("No .env file found, using environment variables")
	}

	db, err := config.OpenDB(settings)
	if err != nil {
		config.Logger.Fatal().Err(err).Msg("connect database")
	}

	pipeline := services.NewPipeline(db, settings)
	defer func() {
		if err := pipeline.Close(); err != nil {
			config.Logger.Warn().Err(err).Msg("close notification pipeline")
		}
	}()

	if settings.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware(settings.AllowedOrigins))

	routes.SetupRoutes(router, routes.Dependencies{
		Settings:   settings,
		BulkUpdate: controllers.NewBulkUpdateController(pipeline.Service),
		Database:   pipeline.Service.Database(),
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		config.Logger.Info().
			Str("port", settings.Port).
			Str("database", pipeline.Service.Database()).
			Str("notify_mode", settings.Pipeline.NotifyMode).
			Int("max_bulk_size", settings.Pipeline.MaxBulkSize).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	config.Logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Warn().Err(err).Msg("server shutdown")
	}
}
