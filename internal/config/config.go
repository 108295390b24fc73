package config

import (
	"os"
	"time"

	"github.com/resolvehq/resolve/internal/utils"
)

// Config holds all application configuration. Secrets come straight
// from the environment; token signing misconfiguration is fatal at
// load time, never discovered per-request.
type Config struct {
	AppName            string
	AppPort            string
	AppURL             string
	DBUrl              string
	RedisURL           string
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	SendGridAPIKey     string
	FromEmail          string
	AdminEmail         string
}

// Defaults for time-based configuration.
const (
	AppName                   = "resolve"
	DefaultAppPort            = "8080"
	DefaultTokenExpiry        = 5 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// LoadConfig reads the environment and returns a *Config, terminating
// the process when a required value is missing or unusable.
func LoadConfig() *Config {
	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	if accessSecret == "" {
		utils.Logger.Fatal("JWT_ACCESS_SECRET env var is missing")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		utils.Logger.Fatal("JWT_REFRESH_SECRET env var is missing")
	}
	if accessSecret == refreshSecret {
		// A shared secret would let a leaked access token be replayed
		// against the refresh endpoint.
		utils.Logger.Fatal("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		appPort = DefaultAppPort
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:" + appPort
	}

	accessExpiry := durationFromEnv("ACCESS_TOKEN_EXPIRY", DefaultTokenExpiry)
	refreshExpiry := durationFromEnv("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiry)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		utils.Logger.Info("REDIS_URL not provided, token store will run in-memory only")
	}

	return &Config{
		AppName:            AppName,
		AppPort:            appPort,
		AppURL:             appURL,
		DBUrl:              dbUrl,
		RedisURL:           redisURL,
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenExpiry:  accessExpiry,
		RefreshTokenExpiry: refreshExpiry,
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		FromEmail:          os.Getenv("FROM_EMAIL"),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		utils.Logger.Fatalf("%s is not a valid positive duration: %q", key, raw)
	}
	return d
}
