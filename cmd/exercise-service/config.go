package main

import (
	"fmt"
	"os"
	"time"

	"codecampus/internal/common/db"
	"codecampus/internal/common/mq"
	"codecampus/internal/common/storage"
	"codecampus/internal/event"
	"codecampus/internal/judge"
	"codecampus/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8081"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// TrustConfig holds assertion verification settings.
type TrustConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// SubmitConfig holds submission intake settings.
type SubmitConfig struct {
	SourceBucket    string `yaml:"sourceBucket"`
	SourceKeyPrefix string `yaml:"sourceKeyPrefix"`
	MaxCodeBytes    int    `yaml:"maxCodeBytes"`
	MaxTestCases    int    `yaml:"maxTestCases"`
	MaxTestBytes    int    `yaml:"maxTestBytes"`
}

// AppConfig holds the exercise service configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logger    logger.Config         `yaml:"logger"`
	Trust     TrustConfig           `yaml:"trust"`
	MySQL     db.MySQLConfig        `yaml:"mysql"`
	Kafka     mq.KafkaConfig        `yaml:"kafka"`
	MinIO     storage.MinIOConfig   `yaml:"minio"`
	Judge     judge.ClientConfig    `yaml:"judge"`
	Publisher event.PublisherConfig `yaml:"publisher"`
	Submit    SubmitConfig          `yaml:"submit"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
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

	if cfg.Trust.Secret == "" {
		return nil, fmt.Errorf("trust.secret is required")
	}
	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("mysql.dsn is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka.brokers are required")
	}
	if cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("minio.endpoint is required")
	}
	if cfg.Judge.Target == "" {
		return nil, fmt.Errorf("judge.target is required")
	}
	if cfg.Publisher.Topic == "" {
		return nil, fmt.Errorf("publisher.topic is required")
	}
	if cfg.Submit.SourceBucket == "" {
		return nil, fmt.Errorf("submit.sourceBucket is required")
	}
	return &cfg, nil
}
