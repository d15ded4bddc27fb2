package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
	JWT         JWTConfig         `yaml:"jwt"`
	Share       ShareConfig       `yaml:"share"`
	Trash       TrashConfig       `yaml:"trash"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Pagination  PaginationConfig  `yaml:"pagination"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Quota       QuotaConfig       `yaml:"quota"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port          int    `yaml:"port" validate:"min=1,max=65535"`
	Host          string `yaml:"host"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"oneof=mysql postgres"`
	Host         string `yaml:"host" validate:"required"`
	Port         int    `yaml:"port" validate:"min=1,max=65535"`
	Username     string `yaml:"username" validate:"required"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database" validate:"required"`
	Charset      string `yaml:"charset"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig selects the blob store backend. Options are decoded by the
// backend itself, so each type documents its own keys.
type StorageConfig struct {
	Type        string         `yaml:"type" validate:"oneof=s3 local"`
	MaxFileSize int64          `yaml:"max_file_size"`
	Options     map[string]any `yaml:"options"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" validate:"required"`
	Issuer string `yaml:"issuer"`
}

type ShareConfig struct {
	SignedURLTTLSeconds     int `yaml:"signed_url_ttl_seconds"`
	OwnerDownloadTTLSeconds int `yaml:"owner_download_ttl_seconds"`
	MaxPasswordAttempts     int `yaml:"max_password_attempts"`
	AttemptWindowSeconds    int `yaml:"attempt_window_seconds"`
}

type TrashConfig struct {
	RetentionDays   int `yaml:"retention_days"`
	CleanupInterval int `yaml:"cleanup_interval"`
}

type ReconcileConfig struct {
	Enabled           bool `yaml:"enabled"`
	IntervalSeconds   int  `yaml:"interval_seconds"`
	StaleAfterSeconds int  `yaml:"stale_after_seconds"`
	BatchSize         int  `yaml:"batch_size"`
}

type PaginationConfig struct {
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	DefaultSortBy   string `yaml:"default_sort_by"`
	DefaultOrder    string `yaml:"default_order"`
}

type PreferencesConfig struct {
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type QuotaConfig struct {
	DefaultBytes int64 `yaml:"default_bytes"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

// Parse decodes raw YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.MaxFileSize == 0 {
		cfg.Storage.MaxFileSize = 2 * 1024 * 1024 * 1024
	}
	if cfg.Share.SignedURLTTLSeconds == 0 {
		cfg.Share.SignedURLTTLSeconds = 300
	}
	if cfg.Share.OwnerDownloadTTLSeconds == 0 {
		cfg.Share.OwnerDownloadTTLSeconds = 60
	}
	if cfg.Share.MaxPasswordAttempts == 0 {
		cfg.Share.MaxPasswordAttempts = 10
	}
	if cfg.Share.AttemptWindowSeconds == 0 {
		cfg.Share.AttemptWindowSeconds = 900
	}
	if cfg.Trash.RetentionDays == 0 {
		cfg.Trash.RetentionDays = 30
	}
	if cfg.Trash.CleanupInterval == 0 {
		cfg.Trash.CleanupInterval = 3600
	}
	if cfg.Reconcile.IntervalSeconds == 0 {
		cfg.Reconcile.IntervalSeconds = 300
	}
	if cfg.Reconcile.StaleAfterSeconds == 0 {
		cfg.Reconcile.StaleAfterSeconds = 120
	}
	if cfg.Reconcile.BatchSize == 0 {
		cfg.Reconcile.BatchSize = 100
	}
	if cfg.Pagination.DefaultPageSize == 0 {
		cfg.Pagination.DefaultPageSize = 50
	}
	if cfg.Pagination.MaxPageSize == 0 {
		cfg.Pagination.MaxPageSize = 200
	}
	if cfg.Pagination.DefaultSortBy == "" {
		cfg.Pagination.DefaultSortBy = "created_at"
	}
	if cfg.Pagination.DefaultOrder == "" {
		cfg.Pagination.DefaultOrder = "desc"
	}
	if cfg.Preferences.CacheSize == 0 {
		cfg.Preferences.CacheSize = 1024
	}
	if cfg.Preferences.CacheTTLSeconds == 0 {
		cfg.Preferences.CacheTTLSeconds = 600
	}
	if cfg.Quota.DefaultBytes == 0 {
		cfg.Quota.DefaultBytes = 5 * 1024 * 1024 * 1024
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
