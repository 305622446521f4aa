package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Export     ExportConfig     `yaml:"export"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CacheConfig holds the TTLs for the cached summary views.
type CacheConfig struct {
	UserTTLSeconds  int           `yaml:"user_ttl_seconds"`
	AdminTTLSeconds int           `yaml:"admin_ttl_seconds"`
	UserTTL         time.Duration `yaml:"-"`
	AdminTTL        time.Duration `yaml:"-"`
}

// ExportConfig holds the CSV export settings.
type ExportConfig struct {
	Dir            string `yaml:"dir"`
	WorkerPoolSize int    `yaml:"worker_pool_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// SchedulerConfig controls the daily reminder and monthly report jobs.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Timezone     string `yaml:"timezone"`
	ReminderHour int    `yaml:"reminder_hour"`
	ReportHour   int    `yaml:"report_hour"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Cache.UserTTLSeconds <= 0 {
		cfg.Cache.UserTTLSeconds = 20
	}
	if cfg.Cache.AdminTTLSeconds <= 0 {
		cfg.Cache.AdminTTLSeconds = 30
	}
	cfg.Cache.UserTTL = time.Duration(cfg.Cache.UserTTLSeconds) * time.Second
	cfg.Cache.AdminTTL = time.Duration(cfg.Cache.AdminTTLSeconds) * time.Second

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "./exports"
	}
	if cfg.Export.WorkerPoolSize <= 0 {
		log.Printf("export.worker_pool_size is not set or invalid; defaulting to 1")
		cfg.Export.WorkerPoolSize = 1
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Scheduler.ReminderHour <= 0 || cfg.Scheduler.ReminderHour > 23 {
		cfg.Scheduler.ReminderHour = 18
	}
	if cfg.Scheduler.ReportHour <= 0 || cfg.Scheduler.ReportHour > 23 {
		cfg.Scheduler.ReportHour = 8
	}

	return &cfg, nil
}
