package main

import (
	"fmt"
	"os"
	"time"

	"codecampus/internal/common/db"
	"codecampus/internal/common/mq"
	"codecampus/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8082"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
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

// ConsumerConfig holds event subscription settings.
type ConsumerConfig struct {
	Topic   string              `yaml:"topic"`
	Options mq.SubscribeOptions `yaml:"options"`
}

// AppConfig holds the media service configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   logger.Config  `yaml:"logger"`
	Trust    TrustConfig    `yaml:"trust"`
	MySQL    db.MySQLConfig `yaml:"mysql"`
	Kafka    mq.KafkaConfig `yaml:"kafka"`
	Consumer ConsumerConfig `yaml:"consumer"`
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
	if cfg.Consumer.Topic == "" {
		return nil, fmt.Errorf("consumer.topic is required")
	}
	if cfg.Consumer.Options.ConsumerGroup == "" {
		cfg.Consumer.Options.ConsumerGroup = "media-service"
	}
	if cfg.Consumer.Options.DeadLetterTopic == "" {
		cfg.Consumer.Options.DeadLetterTopic = cfg.Consumer.Topic + ".dlq"
	}
	return &cfg, nil
}
