package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the StreamHive backend service.
type Config struct {
	AppPort       int
	MongoURI      string
	MongoDatabase string
	LogLevel      string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	UploadDir      string
	MaxUploadBytes int64
	SeedDir        string

	ObjectStore ObjectStoreConfig

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// ObjectStoreConfig describes the S3-compatible service holding media assets.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development while allowing overrides through environment variables.
// A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppPort:       getInt("STREAMHIVE_PORT", 8080),
		MongoURI:      getString("STREAMHIVE_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getString("STREAMHIVE_MONGO_DATABASE", "streamhive"),
		LogLevel:      getString("STREAMHIVE_LOG_LEVEL", "info"),

		AccessTokenSecret:  getString("STREAMHIVE_ACCESS_TOKEN_SECRET", "dev-access-secret"),
		RefreshTokenSecret: getString("STREAMHIVE_REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:     getDuration("STREAMHIVE_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("STREAMHIVE_REFRESH_TOKEN_TTL", 240*time.Hour),

		UploadDir:      getString("STREAMHIVE_UPLOAD_DIR", os.TempDir()),
		MaxUploadBytes: getInt64("STREAMHIVE_MAX_UPLOAD_BYTES", 256<<20),
		SeedDir:        getString("STREAMHIVE_SEED_DIR", "seeds"),

		ObjectStore: ObjectStoreConfig{
			Bucket:        getString("STREAMHIVE_MEDIA_BUCKET", "streamhive-media"),
			Region:        getString("STREAMHIVE_MEDIA_REGION", "us-east-1"),
			Endpoint:      getString("STREAMHIVE_MEDIA_ENDPOINT", ""),
			PublicBaseURL: getString("STREAMHIVE_MEDIA_PUBLIC_URL", ""),
		},

		LoginRateLimit:  getInt("STREAMHIVE_LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getDuration("STREAMHIVE_LOGIN_RATE_WINDOW", time.Minute),
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
