package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codecampus/internal/common/cache"
	commonMiddleware "codecampus/internal/common/http/middleware"
	"codecampus/internal/gateway/middleware"
	"codecampus/internal/gateway/service"
	"codecampus/internal/trust"
	"codecampus/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/gateway.yaml"

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

	redisCache, err := cache.NewRedisCache(appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() { _ = redisCache.Close() }()

	authService := service.NewAuthService(appCfg.Auth.JWTSecret, appCfg.Auth.JWTIssuer, redisCache, appCfg.Redis.ReadTimeout)
	rateService := service.NewRateLimitService(redisCache)

	issuer, err := trust.NewIssuer(appCfg.Trust.Secret, appCfg.Trust.Issuer, appCfg.Trust.TTL)
	if err != nil {
		logger.Error(context.Background(), "init trust issuer failed", zap.Error(err))
		return
	}

	upstreams, err := parseUpstreams(appCfg.Upstreams)
	if err != nil {
		logger.Error(context.Background(), "parse upstreams failed", zap.Error(err))
		return
	}
	proxyFactory := service.NewProxyFactory(appCfg.Proxy, upstreams)

	httpServer, err := buildHTTPServer(appCfg, authService, rateService, proxyFactory, issuer)
	if err != nil {
		logger.Error(context.Background(), "build http server failed", zap.Error(err))
		return
	}

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "gateway http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg *AppConfig, authService *service.AuthService, rateService *service.RateLimitService, proxyFactory *service.ProxyFactory, issuer *trust.Issuer) (*http.Server, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonMiddleware.TraceContextMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS))
	router.Use(commonMiddleware.RequestLogger())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, route := range cfg.Routes {
		proxy, err := proxyFactory.Get(route.Upstream)
		if err != nil {
			return nil, fmt.Errorf("resolve upstream %s failed: %w", route.Upstream, err)
		}
		routeKey := route.Name
		if routeKey == "" {
			routeKey = route.Path
		}
		policy := middleware.AuthPolicy{Mode: route.Auth.Mode, Roles: route.Auth.Roles}
		ratePolicy := middleware.RateLimitPolicy{
			Window:  pickWindow(route.RateLimit.Window, cfg.Rate.Window),
			UserMax: pickLimit(route.RateLimit.UserMax, cfg.Rate.UserMax),
			IPMax:   pickLimit(route.RateLimit.IPMax, cfg.Rate.IPMax),
		}

		handlers := []gin.HandlerFunc{
			middleware.AuthMiddleware(authService, policy),
			middleware.RateLimitMiddleware(rateService, routeKey, ratePolicy),
			middleware.ProxyHandler(proxy, issuer, routeKey, route.Timeout, route.StripPrefix),
		}
		methods := route.Methods
		if len(methods) == 0 {
			methods = []string{http.MethodGet}
		}
		router.Match(methods, route.Path, handlers...)
	}

	return &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}, nil
}

func pickLimit(routeValue, defaultValue int) int {
	if routeValue > 0 {
		return routeValue
	}
	return defaultValue
}

func pickWindow(routeValue, defaultValue time.Duration) time.Duration {
	if routeValue > 0 {
		return routeValue
	}
	return defaultValue
}

func parseUpstreams(items []UpstreamConfig) (map[string]*url.URL, error) {
	result := make(map[string]*url.URL, len(items))
	for _, item := range items {
		if item.Name == "" || item.BaseURL == "" {
			return nil, fmt.Errorf("upstream name and baseURL are required")
		}
		parsed, err := url.Parse(item.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse upstream %s failed: %w", item.Name, err)
		}
		result[item.Name] = parsed
	}
	return result, nil
}
