package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	authRepository "github.com/imageforge/imageforge/internal/auth/repository"
	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/convert"
	jobsRepository "github.com/imageforge/imageforge/internal/jobs/repository"
	usageReporter "github.com/imageforge/imageforge/internal/usage/reporter"
	usageRepository "github.com/imageforge/imageforge/internal/usage/repository"
	"github.com/imageforge/imageforge/internal/worker"
	"github.com/imageforge/imageforge/pkg/db/aws"
	"github.com/imageforge/imageforge/pkg/db/postgres"
	clientRedis "github.com/imageforge/imageforge/pkg/db/redis"
	"github.com/imageforge/imageforge/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()

	s3Client, presignClient, err := aws.NewAWSClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	aRepo := authRepository.NewAuthRepo(psqlDB)
	jRepo := jobsRepository.NewJobsRepository(psqlDB)
	qRepo := jobsRepository.NewQueueRepository(redisClient, cfg, appLogger)
	stRepo := jobsRepository.NewStorageRepository(s3Client, presignClient, cfg)
	uRepo := usageRepository.NewUsageRepo(psqlDB)
	reporter := usageReporter.NewMeterReporter(cfg, aRepo, appLogger)

	w := worker.NewWorker(
		cfg,
		jRepo,
		qRepo,
		stRepo,
		uRepo,
		reporter,
		convert.NewConverter(),
		worker.NewNotifier(appLogger),
		appLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	w.Run(ctx)
}
