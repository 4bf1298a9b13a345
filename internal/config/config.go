package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
// Proxy variables are deliberately absent: the delivery client reads them on every call.
type Config struct {
	AppName            string        `mapstructure:"app_name"`
	Env                string        `mapstructure:"app_env"`
	LogLevel           string        `mapstructure:"log_level"`
	ServicesFile       string        `mapstructure:"services_file"`
	EventFile          string        `mapstructure:"event_file"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	CAFile             string        `mapstructure:"codeclimate_ca_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "codeclimate-services")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("services_file", "./configs/services.yaml")
	v.SetDefault("event_file", "")
	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("codeclimate_ca_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/deliveries.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
