package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ClamdAddr      string   `mapstructure:"clamd_addr"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// AuthConfig locates the RS256 key pair and token lifetimes.
type AuthConfig struct {
	PrivateKeyPath  string        `mapstructure:"private_key_path"`
	PublicKeyPath   string        `mapstructure:"public_key_path"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	CookieDomain    string        `mapstructure:"cookie_domain"`
}

// QuotaConfig holds the default tier limits applied to new accounts and on
// upgrade. A download limit of -1 means unlimited.
type QuotaConfig struct {
	FreeCVLimit        int `mapstructure:"free_cv_limit"`
	FreeDownloadLimit  int `mapstructure:"free_download_limit"`
	PremiumCVLimit     int `mapstructure:"premium_cv_limit"`
	EnterpriseCVLimit  int `mapstructure:"enterprise_cv_limit"`
	LoginRatePerHour   int `mapstructure:"login_rate_per_hour"`
	LoginLockThreshold int `mapstructure:"login_lock_threshold"`
}

// PDFConfig bounds the headless-browser capture.
type PDFConfig struct {
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// WorkerConfig controls the preview worker.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.clamd_addr", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvmaker")
	v.SetDefault("database.user", "cvmaker")
	v.SetDefault("database.password", "cvmaker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "cv-assets")
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("quota.free_cv_limit", 3)
	v.SetDefault("quota.free_download_limit", 5)
	v.SetDefault("quota.premium_cv_limit", 50)
	v.SetDefault("quota.enterprise_cv_limit", 100)
	v.SetDefault("quota.login_rate_per_hour", 10)
	v.SetDefault("quota.login_lock_threshold", 5)
	v.SetDefault("pdf.render_timeout", 90*time.Second)
	v.SetDefault("pdf.idle_timeout", 15*time.Second)
	v.SetDefault("worker.concurrency", 4)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                "API_PORT",
		"api.allowed_origins":     "API_ALLOWED_ORIGINS",
		"api.clamd_addr":          "CLAMD_ADDR",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.name":           "POSTGRES_DB",
		"database.user":           "POSTGRES_USER",
		"database.password":       "POSTGRES_PASSWORD",
		"database.sslmode":        "DATABASE_SSLMODE",
		"redis.host":              "REDIS_HOST",
		"redis.port":              "REDIS_PORT",
		"minio.endpoint":          "MINIO_ENDPOINT",
		"minio.access_key_id":     "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key": "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":           "MINIO_USE_SSL",
		"minio.bucket":            "MINIO_BUCKET",
		"auth.private_key_path":   "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":    "JWT_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":   "JWT_ACCESS_TTL",
		"auth.refresh_token_ttl":  "JWT_REFRESH_TTL",
		"auth.cookie_domain":      "AUTH_COOKIE_DOMAIN",
		"quota.free_cv_limit":     "QUOTA_FREE_CV_LIMIT",
		"quota.free_download_limit": "QUOTA_FREE_DOWNLOAD_LIMIT",
		"quota.premium_cv_limit":    "QUOTA_PREMIUM_CV_LIMIT",
		"quota.enterprise_cv_limit": "QUOTA_ENTERPRISE_CV_LIMIT",
		"quota.login_rate_per_hour": "LOGIN_RATE_PER_HOUR",
		"quota.login_lock_threshold": "LOGIN_LOCK_THRESHOLD",
		"pdf.render_timeout":         "PDF_RENDER_TIMEOUT",
		"pdf.idle_timeout":           "PDF_IDLE_TIMEOUT",
		"worker.concurrency":         "WORKER_CONCURRENCY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Quota.FreeCVLimit <= 0 {
		return errors.New("free cv limit must be positive")
	}
	if cfg.Quota.FreeDownloadLimit <= 0 {
		return errors.New("free download limit must be positive")
	}
	if cfg.PDF.RenderTimeout <= 0 {
		return errors.New("pdf render timeout must be positive")
	}
	return nil
}
