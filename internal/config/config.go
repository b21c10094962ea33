// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	APIKey       string        `yaml:"api_key"`       // bearer token for the query API
	WebhookToken string        `yaml:"webhook_token"` // shared secret checked on webhook ingress
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl"` // webhook idempotency key lifetime
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type StoreConfig struct {
	BundleID string `yaml:"bundle_id"`
	Sandbox  bool   `yaml:"sandbox"`
}

type ValidationConfig struct {
	Endpoint string        `yaml:"endpoint"` // server-side receipt validation URL
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SchedulerConfig struct {
	RevalidationInterval time.Duration `yaml:"revalidation_interval"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Store      StoreConfig      `yaml:"store"`
	Validation ValidationConfig `yaml:"validation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Redis.DedupTTL <= 0 {
		// Long enough to absorb the store's notification retry schedule.
		cfg.Redis.DedupTTL = 48 * time.Hour
	}
	if cfg.Store.BundleID == "" {
		cfg.Store.BundleID = "com.growthlabs.growthmethod"
	}
	if cfg.Validation.Timeout <= 0 {
		cfg.Validation.Timeout = 10 * time.Second
	}
	if cfg.Scheduler.RevalidationInterval <= 0 {
		cfg.Scheduler.RevalidationInterval = 10 * time.Minute
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
