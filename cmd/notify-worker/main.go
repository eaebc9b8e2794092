package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	settings, err := config.Load()
	if err != nil {
		config.Logger.Fatal().Err(err).Msg("load configuration")
	}
	logFile, _ := config.InitLogging(settings.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	db, err := config.OpenDB(settings)
	if err != nil {
		config.Logger.Fatal().Err(err).Msg("connect database")
	}

	mailer := config.NewMailer(settings.SMTP)
	if !mailer.Configured() {
		config.Logger.Fatal().Err(config.ErrMailerNotConfigured).Msg("worker needs SMTP settings")
	}

	store := services.NewGormStatusStore(db)
	sender := services.NewMailStatusSender(mailer, settings.Conference)
	dispatcher := services.NewDispatcher(settings.Pipeline, sender, store, nil)
	worker := services.NewNotificationWorker(dispatcher)

	server := asynq.NewServer(services.RedisOpt(settings.Redis), asynq.Config{
		Concurrency: 4,
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	config.Logger.Info().Str("redis", settings.Redis.Addr).Msg("notification worker starting")
	if err := server.Run(worker.Handler()); err != nil {
		config.Logger.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
