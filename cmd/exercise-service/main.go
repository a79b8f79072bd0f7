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

	"codecampus/internal/common/db"
	commonMiddleware "codecampus/internal/common/http/middleware"
	"codecampus/internal/common/mq"
	"codecampus/internal/common/storage"
	"codecampus/internal/event"
	"codecampus/internal/exercise/controller"
	"codecampus/internal/exercise/repository"
	"codecampus/internal/exercise/service"
	"codecampus/internal/judge"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/exercise-service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	database, err := db.NewMySQL(appCfg.MySQL)
	if err != nil {
		logger.Error(ctx, "init mysql failed", zap.Error(err))
		return
	}
	defer func() { _ = database.Close() }()

	objectStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(ctx, "init minio failed", zap.Error(err))
		return
	}

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
	if err != nil {
		logger.Error(ctx, "init kafka failed", zap.Error(err))
		return
	}
	defer func() { _ = mqClient.Close() }()

	publisher, err := event.NewPublisher(mqClient, appCfg.Publisher)
	if err != nil {
		logger.Error(ctx, "init event publisher failed", zap.Error(err))
		return
	}
	defer publisher.Close()

	judgeClient, err := judge.NewClient(appCfg.Judge)
	if err != nil {
		logger.Error(ctx, "init judge client failed", zap.Error(err))
		return
	}
	defer func() { _ = judgeClient.Close() }()

	verifier, err := trust.NewVerifier(appCfg.Trust.Secret, appCfg.Trust.Issuer)
	if err != nil {
		logger.Error(ctx, "init trust verifier failed", zap.Error(err))
		return
	}

	submitService, err := service.NewSubmitService(service.Config{
		SubmissionRepo:  repository.NewSubmissionRepository(database),
		Judge:           judgeClient,
		Storage:         objectStorage,
		Publisher:       publisher,
		SourceBucket:    appCfg.Submit.SourceBucket,
		SourceKeyPrefix: appCfg.Submit.SourceKeyPrefix,
		MaxCodeBytes:    appCfg.Submit.MaxCodeBytes,
		MaxTestCases:    appCfg.Submit.MaxTestCases,
		MaxTestBytes:    appCfg.Submit.MaxTestBytes,
	})
	if err != nil {
		logger.Error(ctx, "init submit service failed", zap.Error(err))
		return
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonMiddleware.TraceContextMiddleware())
	router.Use(commonMiddleware.RequestLogger())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	controller.NewSubmitController(submitService).RegisterRoutes(router, verifier)

	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "exercise service started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
}
