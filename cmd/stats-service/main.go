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

	"codecampus/internal/common/cache"
	commonMiddleware "codecampus/internal/common/http/middleware"
	"codecampus/internal/common/mq"
	"codecampus/internal/event"
	"codecampus/internal/stats/controller"
	"codecampus/internal/stats/service"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/stats-service.yaml"

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

	redisCache, err := cache.NewRedisCache(appCfg.Redis)
	if err != nil {
		logger.Error(ctx, "init redis failed", zap.Error(err))
		return
	}
	defer func() { _ = redisCache.Close() }()

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
	if err != nil {
		logger.Error(ctx, "init kafka failed", zap.Error(err))
		return
	}
	defer func() { _ = mqClient.Close() }()

	statsConsumer, err := service.NewStatsConsumer(redisCache, appCfg.Stats.DedupTTL)
	if err != nil {
		logger.Error(ctx, "init stats consumer failed", zap.Error(err))
		return
	}
	dispatcher := event.NewDispatcher()
	if err := statsConsumer.RegisterHandlers(dispatcher); err != nil {
		logger.Error(ctx, "register event handlers failed", zap.Error(err))
		return
	}
	if err := mqClient.Subscribe(ctx, appCfg.Consumer.Topic, dispatcher.HandleMessage, &appCfg.Consumer.Options); err != nil {
		logger.Error(ctx, "subscribe events failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(ctx, "start consumer failed", zap.Error(err))
		return
	}

	verifier, err := trust.NewVerifier(appCfg.Trust.Secret, appCfg.Trust.Issuer)
	if err != nil {
		logger.Error(ctx, "init trust verifier failed", zap.Error(err))
		return
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonMiddleware.TraceContextMiddleware())
	router.Use(commonMiddleware.RequestLogger())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	controller.NewStatsController(statsConsumer).RegisterRoutes(router, verifier)

	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "stats service started", zap.String("addr", appCfg.Server.Addr))
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

	if err := mqClient.Stop(); err != nil {
		logger.Error(ctx, "stop consumer failed", zap.Error(err))
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
}
