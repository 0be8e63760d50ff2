package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ArchiveNone     = "none"
	ArchiveSupabase = "supabase"
	ArchiveS3       = "s3"
)

type Config struct {
	// FASHN synthesis API
	FashnAPIKey  string
	FashnBaseURL string

	// Try-on jobs
	TryOnCategory        string
	TryOnPollInterval    time.Duration
	TryOnPollMaxAttempts int
	TryOnPollTimeout     time.Duration
	TryOnArchive         string
	TryOnBucket          string
	TryOnSessionTTL      time.Duration

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database (direct Postgres for migrations, queries and LISTEN/NOTIFY)
	DatabaseURL string

	// Swipe
	SwipeThreshold   float64
	SwipeSettleDelay time.Duration

	// Catalog
	CatalogPath string

	// AWS (archive backend)
	AWSRegion   string
	AWSS3Bucket string

	// Server
	Port               string
	Environment        string
	BaseURL            string
	LogLevel           string
	CORSAllowedOrigins []string
}

// Load reads the process environment, falling back to .env.local and then
// .env for keys that are not set.
func Load() (*Config, error) {
	loadDotEnv(".env.local", ".env")

	cfg := &Config{
		FashnAPIKey:  getEnv("FASHN_API_KEY", ""),
		FashnBaseURL: getEnv("FASHN_API_BASE_URL", "https://api.fashn.ai/v1"),

		TryOnCategory: getEnv("TRYON_CATEGORY", "tops"),
		TryOnArchive:  strings.ToLower(getEnv("TRYON_ARCHIVE", ArchiveNone)),
		TryOnBucket:   getEnv("TRYON_BUCKET", "tryons"),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "posts"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CatalogPath: getEnv("CATALOG_PATH", ""),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket: getEnv("AWS_S3_BUCKET", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	var err error
	if cfg.TryOnPollInterval, err = getDuration("TRYON_POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.TryOnPollTimeout, err = getDuration("TRYON_POLL_TIMEOUT", 3*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TryOnSessionTTL, err = getDuration("TRYON_SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TryOnPollMaxAttempts, err = getInt("TRYON_POLL_MAX_ATTEMPTS", 90); err != nil {
		return nil, err
	}
	if cfg.SwipeSettleDelay, err = getDuration("SWIPE_SETTLE_DELAY", 300*time.Millisecond); err != nil {
		return nil, err
	}
	threshold, err := getInt("SWIPE_THRESHOLD", 100)
	if err != nil {
		return nil, err
	}
	cfg.SwipeThreshold = float64(threshold)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FashnAPIKey == "" {
		return fmt.Errorf("FASHN_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.TryOnPollInterval <= 0 {
		return fmt.Errorf("TRYON_POLL_INTERVAL must be positive")
	}
	if c.TryOnPollMaxAttempts <= 0 {
		return fmt.Errorf("TRYON_POLL_MAX_ATTEMPTS must be positive")
	}
	if c.TryOnPollTimeout <= 0 {
		return fmt.Errorf("TRYON_POLL_TIMEOUT must be positive")
	}
	if c.TryOnSessionTTL <= 0 {
		return fmt.Errorf("TRYON_SESSION_TTL must be positive")
	}
	if c.SwipeThreshold <= 0 {
		return fmt.Errorf("SWIPE_THRESHOLD must be positive")
	}
	switch c.TryOnArchive {
	case ArchiveNone, ArchiveSupabase:
	case ArchiveS3:
		if c.AWSS3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when TRYON_ARCHIVE=s3")
		}
	default:
		return fmt.Errorf("TRYON_ARCHIVE must be one of none, supabase, s3; got %q", c.TryOnArchive)
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// loadDotEnv loads each file that exists. Earlier files win because godotenv
// never overrides a key that is already set.
func loadDotEnv(files ...string) {
	for _, file := range files {
		_ = godotenv.Load(file)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return n, nil
}

func getList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
