// Package config loads server settings from a YAML file, then lets
// environment variables (optionally from a .env file) override them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/nepremicnine/internal/blob"
	"github.com/erazemk/nepremicnine/internal/logging"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     logging.Config    `yaml:"logging"`
	Blob        blob.Config       `yaml:"blob"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	TokenTTL  time.Duration `yaml:"token_ttl"`
	AdminUser string        `yaml:"admin_user"`
}

type MaintenanceConfig struct {
	Schedule      string        `yaml:"schedule"` // cron spec
	OrphanBlobAge time.Duration `yaml:"orphan_blob_age"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{Path: "nepremicnine.sqlite3"},
		Auth: AuthConfig{
			TokenTTL:  7 * 24 * time.Hour,
			AdminUser: "Admin",
		},
		Logging: logging.Config{Level: "info", Format: "text"},
		Blob: blob.Config{
			Backend:        blob.BackendSQLite,
			Prefix:         "documents",
			MaxUploadBytes: 10 << 20,
		},
		Maintenance: MaintenanceConfig{
			Schedule:      "@hourly",
			OrphanBlobAge: 24 * time.Hour,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("NEPREMICNINE_ADDR", c.Server.Addr)
	c.Database.Path = getEnv("NEPREMICNINE_DB", c.Database.Path)
	c.Auth.AdminUser = getEnv("NEPREMICNINE_ADMIN_USER", c.Auth.AdminUser)

	c.Logging.Level = getEnv("NEPREMICNINE_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("NEPREMICNINE_LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnv("NEPREMICNINE_LOG_FILE", c.Logging.File)

	c.Blob.Backend = getEnv("NEPREMICNINE_BLOB_BACKEND", c.Blob.Backend)
	c.Blob.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Blob.Minio.Endpoint)
	c.Blob.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Blob.Minio.AccessKey)
	c.Blob.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Blob.Minio.SecretKey)
	c.Blob.Minio.Bucket = getEnv("MINIO_BUCKET", c.Blob.Minio.Bucket)
	c.Blob.S3.Bucket = getEnv("S3_BUCKET", c.Blob.S3.Bucket)
	c.Blob.S3.Region = getEnv("S3_REGION", c.Blob.S3.Region)
	c.Blob.S3.Endpoint = getEnv("S3_ENDPOINT", c.Blob.S3.Endpoint)
	c.Blob.S3.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.Blob.S3.AccessKeyID)
	c.Blob.S3.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.Blob.S3.SecretAccessKey)

	c.Maintenance.Schedule = getEnv("NEPREMICNINE_MAINTENANCE_SCHEDULE", c.Maintenance.Schedule)

	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MINIO_USE_SSL: %w", err)
		}
		c.Blob.Minio.UseSSL = b
	}
	if v := os.Getenv("NEPREMICNINE_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NEPREMICNINE_TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	return nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Blob.MaxUploadBytes <= 0 {
		return fmt.Errorf("blob.max_upload_bytes must be positive")
	}

	switch c.Blob.Backend {
	case blob.BackendSQLite:
	case blob.BackendMinio:
		if c.Blob.Minio.Endpoint == "" || c.Blob.Minio.Bucket == "" {
			return fmt.Errorf("blob.minio needs endpoint and bucket")
		}
	case blob.BackendS3:
		if c.Blob.S3.Bucket == "" || c.Blob.S3.Region == "" {
			return fmt.Errorf("blob.s3 needs bucket and region")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
