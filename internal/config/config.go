package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 汇总服务端与 Worker 的全部配置，只从环境变量读取。
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int    `mapstructure:"port"`
	MaxResumes     int    `mapstructure:"max_resumes"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	InternalSecret string `mapstructure:"internal_secret"`
	PDFDailyLimit  int    `mapstructure:"pdf_daily_limit"`
}

// Origins 拆分逗号分隔的跨域白名单。
func (a APIConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(a.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
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

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 包含 JWT 与登录限流配置。
type AuthConfig struct {
	PrivateKeyPath        string        `mapstructure:"private_key_path"`
	PublicKeyPath         string        `mapstructure:"public_key_path"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `mapstructure:"refresh_token_ttl"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
}

// WorkerConfig 包含 PDF 导出 Worker 的配置。
type WorkerConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	InternalAPIBaseURL string        `mapstructure:"internal_api_base_url"`
	ChromeBin          string        `mapstructure:"chrome_bin"`
	RenderTimeout      time.Duration `mapstructure:"render_timeout"`
	MetricsPort        int           `mapstructure:"metrics_port"`
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

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v, envMappings); err != nil {
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
	v.SetDefault("api.max_resumes", 20)
	v.SetDefault("api.allowed_origins", "http://localhost:5173")
	v.SetDefault("api.pdf_daily_limit", 20)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resume_builder")
	v.SetDefault("database.user", "resume_builder")
	v.SetDefault("database.password", "resume_builder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", 15*time.Minute)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.internal_api_base_url", "http://localhost:8080")
	v.SetDefault("worker.render_timeout", 60*time.Second)
	v.SetDefault("worker.metrics_port", 9091)
}

var envMappings = map[string]string{
	"api.port":                       "API_PORT",
	"api.max_resumes":                "API_MAX_RESUMES",
	"api.allowed_origins":            "API_ALLOWED_ORIGINS",
	"api.internal_secret":            "INTERNAL_API_SECRET",
	"api.pdf_daily_limit":            "PDF_DAILY_LIMIT",
	"database.host":                  "DATABASE_HOST",
	"database.port":                  "DATABASE_PORT",
	"database.name":                  "POSTGRES_DB",
	"database.user":                  "POSTGRES_USER",
	"database.password":              "POSTGRES_PASSWORD",
	"database.sslmode":               "DATABASE_SSLMODE",
	"redis.host":                     "REDIS_HOST",
	"redis.port":                     "REDIS_PORT",
	"redis.password":                 "REDIS_PASSWORD",
	"minio.endpoint":                 "MINIO_ENDPOINT",
	"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
	"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
	"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
	"minio.use_ssl":                  "MINIO_USE_SSL",
	"minio.bucket":                   "MINIO_BUCKET",
	"minio.region":                   "MINIO_REGION",
	"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
	"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
	"auth.private_key_path":          "JWT_PRIVATE_KEY_PATH",
	"auth.public_key_path":           "JWT_PUBLIC_KEY_PATH",
	"auth.access_token_ttl":          "JWT_ACCESS_TTL",
	"auth.refresh_token_ttl":         "JWT_REFRESH_TTL",
	"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
	"auth.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
	"auth.login_lock_ttl":            "LOGIN_LOCK_TTL",
	"worker.concurrency":             "WORKER_CONCURRENCY",
	"worker.internal_api_base_url":   "INTERNAL_API_BASE_URL",
	"worker.chrome_bin":              "CHROME_BIN",
	"worker.render_timeout":          "WORKER_RENDER_TIMEOUT",
	"worker.metrics_port":            "WORKER_METRICS_PORT",
}

func bindEnv(v *viper.Viper, mappings map[string]string) error {
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
	if strings.TrimSpace(cfg.API.InternalSecret) == "" {
		return errors.New("internal api secret is required")
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
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return errors.New("jwt token ttl must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
