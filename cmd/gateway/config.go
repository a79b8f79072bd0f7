package main

import (
	"fmt"
	"os"
	"time"

	"codecampus/internal/common/cache"
	"codecampus/internal/gateway/middleware"
	"codecampus/internal/gateway/service"
	"codecampus/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	MaxHeaderBytes int           `yaml:"maxHeaderBytes"`
}

// AuthConfig holds edge token settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// TrustConfig holds internal assertion settings. The secret must differ
// from the edge token secret so a leaked edge token can never pass as an
// internal assertion.
type TrustConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// RateLimitConfig holds gateway rate limit defaults.
type RateLimitConfig struct {
	Window  time.Duration `yaml:"window"`
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
}

// UpstreamConfig defines an upstream service.
type UpstreamConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseURL"`
}

// AuthPolicy defines auth behavior for a route.
type AuthPolicy struct {
	Mode  string   `yaml:"mode"`  // public | protected
	Roles []string `yaml:"roles"` // optional
}

// RouteRateLimit overrides per-route limits.
type RouteRateLimit struct {
	Window  time.Duration `yaml:"window"`
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
}

// RouteConfig defines a gateway route.
type RouteConfig struct {
	Name        string         `yaml:"name"`
	Methods     []string       `yaml:"methods"`
	Path        string         `yaml:"path"`
	Upstream    string         `yaml:"upstream"`
	Auth        AuthPolicy     `yaml:"auth"`
	RateLimit   RouteRateLimit `yaml:"rateLimit"`
	Timeout     time.Duration  `yaml:"timeout"`
	StripPrefix string         `yaml:"stripPrefix"`
}

// AppConfig holds the gateway configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logger    logger.Config         `yaml:"logger"`
	Auth      AuthConfig            `yaml:"auth"`
	Trust     TrustConfig           `yaml:"trust"`
	Redis     cache.RedisConfig     `yaml:"redis"`
	Rate      RateLimitConfig       `yaml:"rateLimit"`
	Proxy     service.ProxyConfig   `yaml:"proxy"`
	CORS      middleware.CORSConfig `yaml:"cors"`
	Upstreams []UpstreamConfig      `yaml:"upstreams"`
	Routes    []RouteConfig         `yaml:"routes"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is required")
	}
	if cfg.Trust.Secret == "" {
		return nil, fmt.Errorf("trust.secret is required")
	}
	if cfg.Trust.Secret == cfg.Auth.JWTSecret {
		return nil, fmt.Errorf("trust.secret must differ from auth.jwtSecret")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Rate.Window == 0 {
		cfg.Rate.Window = time.Minute
	}
	if len(cfg.Upstreams) == 0 {
		return nil, fmt.Errorf("at least one upstream is required")
	}
	if len(cfg.Routes) == 0 {
		return nil, fmt.Errorf("at least one route is required")
	}
	return &cfg, nil
}
