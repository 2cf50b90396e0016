package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Stats     StatsConfig     `yaml:"stats"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type StatsConfig struct {
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type WhatsAppConfig struct {
	GatewayURL     string        `yaml:"gateway_url"`
	APIKey         string        `yaml:"api_key"`
	StatusInterval time.Duration `yaml:"status_interval"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type DispatchConfig struct {
	MinSendDelay  time.Duration `yaml:"min_send_delay"`
	MaxSendDelay  time.Duration `yaml:"max_send_delay"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timezone     string        `yaml:"timezone"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/leadline/app.db"
	}
	if cfg.Stats.Path == "" {
		cfg.Stats.Path = "/var/lib/leadline/stats.db"
	}
	if cfg.Stats.FlushInterval == 0 {
		cfg.Stats.FlushInterval = 10 * time.Second
	}
	if cfg.WhatsApp.StatusInterval == 0 {
		cfg.WhatsApp.StatusInterval = 10 * time.Second
	}
	if cfg.WhatsApp.ReconnectDelay == 0 {
		cfg.WhatsApp.ReconnectDelay = 5 * time.Second
	}
	if cfg.Dispatch.MinSendDelay == 0 {
		cfg.Dispatch.MinSendDelay = 5 * time.Second
	}
	if cfg.Dispatch.MaxSendDelay == 0 {
		cfg.Dispatch.MaxSendDelay = 10 * time.Second
	}
	if cfg.Dispatch.VerifyTimeout == 0 {
		cfg.Dispatch.VerifyTimeout = 10 * time.Second
	}
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = 60 * time.Second
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Asia/Colombo"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Dispatch.MaxSendDelay < cfg.Dispatch.MinSendDelay {
		return fmt.Errorf("dispatch.max_send_delay must be >= dispatch.min_send_delay")
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone is invalid: %w", err)
	}
	return nil
}
