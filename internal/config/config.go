// Package config loads server configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Config is the fully-resolved server configuration.
type Config struct {
	Environment string
	Port        string
	ServiceName string

	DatabaseDriver string // postgres or sqlite
	DatabaseURL    string

	JWTSecret []byte
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	FeedCacheTTL  time.Duration

	AWSRegion  string
	S3Bucket   string
	CDNBaseURL string

	SESFromEmail string
	SESFromName  string

	ElasticsearchURL string

	OTLPEndpoint string
	SamplingRate float64

	LogLevel string
	LogFile  string

	CORSOrigins []string

	RateLimit       int
	RateLimitWindow time.Duration

	CommentEditWindow time.Duration
	DefaultLocale     string

	// Read notifications older than NotificationRetention are pruned; unread
	// ones live three times as long.
	NotificationRetention time.Duration
	RetentionInterval     time.Duration

	// RequiredServices lists optional backends (redis, s3, ses, elasticsearch)
	// whose failure aborts startup instead of degrading.
	RequiredServices []string

	Google *oauth2.Config
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == ""
}

// TracingEnabled reports whether an OTLP endpoint was configured.
func (c *Config) TracingEnabled() bool {
	return c.OTLPEndpoint != ""
}

// Load reads the environment (after .env, if any) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Environment:       get("ENVIRONMENT", "development"),
		Port:              get("PORT", "8787"),
		ServiceName:       get("SERVICE_NAME", "commune-api"),
		DatabaseDriver:    strings.ToLower(get("DB_DRIVER", "postgres")),
		DatabaseURL:       getenv("DATABASE_URL"),
		JWTSecret:         []byte(getenv("JWT_SECRET")),
		TokenTTL:          durationOr(getenv("TOKEN_TTL"), 24*time.Hour),
		RedisAddr:         getenv("REDIS_ADDR"),
		RedisPassword:     getenv("REDIS_PASSWORD"),
		FeedCacheTTL:      durationOr(getenv("FEED_CACHE_TTL"), 30*time.Second),
		AWSRegion:         get("AWS_REGION", "us-east-1"),
		S3Bucket:          getenv("AWS_BUCKET"),
		CDNBaseURL:        getenv("CDN_BASE_URL"),
		SESFromEmail:      getenv("SES_FROM_EMAIL"),
		SESFromName:       get("SES_FROM_NAME", "Commune"),
		ElasticsearchURL:  getenv("ELASTICSEARCH_URL"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SamplingRate:      floatOr(getenv("OTEL_SAMPLING_RATE"), 1.0),
		LogLevel:          get("LOG_LEVEL", "info"),
		LogFile:           get("LOG_FILE", "server.log"),
		CORSOrigins:       splitList(get("CORS_ORIGINS", "*")),
		RateLimit:         intOr(getenv("RATE_LIMIT"), 100),
		RateLimitWindow:   durationOr(getenv("RATE_LIMIT_WINDOW"), time.Minute),
		CommentEditWindow: durationOr(getenv("COMMENT_EDIT_WINDOW"), 15*time.Minute),
		DefaultLocale:     get("DEFAULT_LOCALE", "en"),

		NotificationRetention: durationOr(getenv("NOTIFICATION_RETENTION"), 30*24*time.Hour),
		RetentionInterval:     durationOr(getenv("RETENTION_INTERVAL"), 6*time.Hour),
		RequiredServices:      splitList(getenv("REQUIRED_SERVICES")),
	}

	if cfg.DatabaseURL == "" {
		if cfg.DatabaseDriver == "sqlite" {
			cfg.DatabaseURL = "commune.db"
		} else {
			cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				get("DB_HOST", "localhost"),
				get("DB_PORT", "5432"),
				get("DB_USER", "postgres"),
				getenv("DB_PASSWORD"),
				get("DB_NAME", "commune"),
				get("DB_SSLMODE", "disable"),
			)
		}
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}

	if len(cfg.JWTSecret) == 0 {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		cfg.JWTSecret = []byte("commune-development-secret")
	}

	if id, secret := getenv("GOOGLE_CLIENT_ID"), getenv("GOOGLE_CLIENT_SECRET"); id != "" && secret != "" {
		base := strings.TrimSuffix(get("OAUTH_REDIRECT_URL", "http://localhost:"+cfg.Port), "/")
		cfg.Google = &oauth2.Config{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  base + "/api/v1/auth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}

	return cfg, nil
}

func durationOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func intOr(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func floatOr(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v <= 1 {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
