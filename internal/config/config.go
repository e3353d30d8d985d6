package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment (and an optional .env file).
type Config struct {
	Port        string
	DatabaseURL string
	SeedPath    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ORSAPIKey  string
	ORSBaseURL string
	ORSProfile string

	ProviderConcurrency int
	ProviderRatePerSec  float64
	ProviderMaxAttempts int

	SyncTimeout    time.Duration
	JobWorkers     int
	JobTimeout     time.Duration
	JobLease       time.Duration
	SweepInterval  time.Duration
	PendingGrace   time.Duration
	QueuePopWait   time.Duration
	ShutdownPeriod time.Duration

	DefaultStartTime      string
	DefaultMaxPerRoute    int
	DefaultServiceMinutes int
	FallbackTravelMinutes int
	Timezone              string

	AuthJWTSecret string

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SEED_PATH", "data/seeds/seed.json")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ORS_BASE_URL", "https://api.openrouteservice.org")
	v.SetDefault("ORS_PROFILE", "driving-car")
	v.SetDefault("PROVIDER_CONCURRENCY", 5)
	v.SetDefault("PROVIDER_RATE_PER_SEC", 10.0)
	v.SetDefault("PROVIDER_MAX_ATTEMPTS", 4)
	v.SetDefault("SYNC_TIMEOUT", "30s")
	v.SetDefault("JOB_WORKERS", 2)
	v.SetDefault("JOB_TIMEOUT", "5m")
	v.SetDefault("JOB_LEASE", "10m")
	v.SetDefault("SWEEP_INTERVAL", "30s")
	v.SetDefault("PENDING_GRACE", "1m")
	v.SetDefault("QUEUE_POP_WAIT", "5s")
	v.SetDefault("SHUTDOWN_PERIOD", "20s")
	v.SetDefault("DEFAULT_START_TIME", "08:00")
	v.SetDefault("DEFAULT_MAX_PER_ROUTE", 10)
	v.SetDefault("DEFAULT_SERVICE_MINUTES", 30)
	v.SetDefault("FALLBACK_TRAVEL_MINUTES", 15)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		SeedPath:              v.GetString("SEED_PATH"),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		ORSAPIKey:             strings.TrimSpace(v.GetString("ORS_API_KEY")),
		ORSBaseURL:            v.GetString("ORS_BASE_URL"),
		ORSProfile:            v.GetString("ORS_PROFILE"),
		ProviderConcurrency:   v.GetInt("PROVIDER_CONCURRENCY"),
		ProviderRatePerSec:    v.GetFloat64("PROVIDER_RATE_PER_SEC"),
		ProviderMaxAttempts:   v.GetInt("PROVIDER_MAX_ATTEMPTS"),
		SyncTimeout:           v.GetDuration("SYNC_TIMEOUT"),
		JobWorkers:            v.GetInt("JOB_WORKERS"),
		JobTimeout:            v.GetDuration("JOB_TIMEOUT"),
		JobLease:              v.GetDuration("JOB_LEASE"),
		SweepInterval:         v.GetDuration("SWEEP_INTERVAL"),
		PendingGrace:          v.GetDuration("PENDING_GRACE"),
		QueuePopWait:          v.GetDuration("QUEUE_POP_WAIT"),
		ShutdownPeriod:        v.GetDuration("SHUTDOWN_PERIOD"),
		DefaultStartTime:      v.GetString("DEFAULT_START_TIME"),
		DefaultMaxPerRoute:    v.GetInt("DEFAULT_MAX_PER_ROUTE"),
		DefaultServiceMinutes: v.GetInt("DEFAULT_SERVICE_MINUTES"),
		FallbackTravelMinutes: v.GetInt("FALLBACK_TRAVEL_MINUTES"),
		Timezone:              v.GetString("TIMEZONE"),
		AuthJWTSecret:         v.GetString("AUTH_JWT_SECRET"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.ProviderConcurrency < 1 {
		return fmt.Errorf("config: PROVIDER_CONCURRENCY must be >= 1, got %d", c.ProviderConcurrency)
	}
	if c.ProviderMaxAttempts < 1 {
		return fmt.Errorf("config: PROVIDER_MAX_ATTEMPTS must be >= 1, got %d", c.ProviderMaxAttempts)
	}
	if c.JobWorkers < 1 {
		return fmt.Errorf("config: JOB_WORKERS must be >= 1, got %d", c.JobWorkers)
	}
	if c.DefaultMaxPerRoute < 1 || c.DefaultMaxPerRoute > 50 {
		return fmt.Errorf("config: DEFAULT_MAX_PER_ROUTE must be between 1 and 50, got %d", c.DefaultMaxPerRoute)
	}
	if _, err := time.Parse("15:04", c.DefaultStartTime); err != nil {
		return fmt.Errorf("config: DEFAULT_START_TIME %q: %w", c.DefaultStartTime, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
