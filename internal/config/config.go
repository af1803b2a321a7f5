// Package config resolves server settings from the environment, an optional
// .env file and an optional config file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all server settings.
type Config struct {
	Port       int
	DBPath     string
	StaticPath string
	LogLevel   string

	JWTSecret string
	TokenTTL  time.Duration

	OCR      OCRConfig
	Receipts ReceiptsConfig

	FinalizeGrace time.Duration
}

// OCRConfig configures receipt extraction.
type OCRConfig struct {
	APIKey      string
	Model       string
	MaxRetries  int
	RateLimit   int
	RateWindow  time.Duration
	Timeout     time.Duration
	RateBackend string // memory or redis
	RedisAddr   string
}

// ReceiptsConfig configures where receipt photos are kept.
type ReceiptsConfig struct {
	Backend string // local, s3 or none
	Dir     string

	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

const devSecret = "splitcheck-dev-secret-change-me"

func defaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "./data/splitcheck.db")
	v.SetDefault("static_path", "../frontend/static")
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", devSecret)
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("ocr_max_retries", 1)
	v.SetDefault("ocr_rate_limit", 15)
	v.SetDefault("ocr_rate_window", time.Minute)
	v.SetDefault("ocr_timeout", time.Duration(0))
	v.SetDefault("rate_limit_backend", "memory")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("receipts_backend", "local")
	v.SetDefault("receipts_dir", "./data/receipts")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_public_url", "")
	v.SetDefault("finalize_grace", 500*time.Millisecond)
}

// Load reads .env files (missing ones are ignored), then resolves every
// setting from environment variables, the CONFIG_FILE and the defaults, in
// that order of precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:       v.GetInt("port"),
		DBPath:     v.GetString("db_path"),
		StaticPath: v.GetString("static_path"),
		LogLevel:   v.GetString("log_level"),
		JWTSecret:  v.GetString("jwt_secret"),
		TokenTTL:   v.GetDuration("token_ttl"),
		OCR: OCRConfig{
			APIKey:      v.GetString("gemini_api_key"),
			Model:       v.GetString("gemini_model"),
			MaxRetries:  v.GetInt("ocr_max_retries"),
			RateLimit:   v.GetInt("ocr_rate_limit"),
			RateWindow:  v.GetDuration("ocr_rate_window"),
			Timeout:     v.GetDuration("ocr_timeout"),
			RateBackend: strings.ToLower(v.GetString("rate_limit_backend")),
			RedisAddr:   v.GetString("redis_addr"),
		},
		Receipts: ReceiptsConfig{
			Backend:     strings.ToLower(v.GetString("receipts_backend")),
			Dir:         v.GetString("receipts_dir"),
			S3Endpoint:  v.GetString("s3_endpoint"),
			S3Bucket:    v.GetString("s3_bucket"),
			S3Region:    v.GetString("s3_region"),
			S3AccessKey: v.GetString("s3_access_key"),
			S3SecretKey: v.GetString("s3_secret_key"),
			S3PublicURL: v.GetString("s3_public_url"),
		},
		FinalizeGrace: v.GetDuration("finalize_grace"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL %s", c.TokenTTL)
	}
	if c.OCR.MaxRetries < 0 {
		return fmt.Errorf("invalid OCR_MAX_RETRIES %d", c.OCR.MaxRetries)
	}
	if c.OCR.RateLimit <= 0 || c.OCR.RateWindow <= 0 {
		return errors.New("OCR_RATE_LIMIT and OCR_RATE_WINDOW must be positive")
	}
	if c.OCR.Timeout < 0 {
		return fmt.Errorf("invalid OCR_TIMEOUT %s", c.OCR.Timeout)
	}
	switch c.OCR.RateBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.OCR.RateBackend)
	}
	switch c.Receipts.Backend {
	case "local", "none":
	case "s3":
		if c.Receipts.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when RECEIPTS_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown RECEIPTS_BACKEND %q", c.Receipts.Backend)
	}
	if c.FinalizeGrace < 0 {
		return fmt.Errorf("invalid FINALIZE_GRACE %s", c.FinalizeGrace)
	}
	return nil
}

// UsingDevSecret reports whether the built-in development JWT secret is in use.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == devSecret
}
