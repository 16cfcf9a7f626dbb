// Package config loads service configuration from config.yaml, an optional
// .env file and environment variables (REVIEW_ prefix).
package config

import (
	"time"

	"github.com/ashwinpo/email-review-workshop/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration surface of the review service.
type Config struct {
	Database db.Config

	// HTTP
	ListenAddr     string
	AllowedOrigins []string

	// Extraction endpoint (opaque managed endpoint; see internal/extraction)
	ExtractionURL          string
	ExtractionToken        string
	ExtractionClientID     string
	ExtractionClientSecret string
	ExtractionTokenURL     string
	ExtractionTimeout      time.Duration

	// Read cache (optional; empty address disables caching)
	RedisAddr string
	CacheTTL  time.Duration

	// Review surface
	DefaultActor    string
	FallbackAddress string
	QueueLimit      int
}

// Default returns the configuration used when nothing is set, matching local
// development against a stock Postgres.
func Default() Config {
	return Config{
		Database:          db.DefaultConfig(),
		ListenAddr:        ":8080",
		AllowedOrigins:    []string{"http://localhost:3000"},
		ExtractionTimeout: 30 * time.Second,
		CacheTTL:          30 * time.Second,
		DefaultActor:      "local_user@example.com",
		FallbackAddress:   "reviewers@example.com",
		QueueLimit:        100,
	}
}

// Load reads config.yaml from configPath (optional) with environment
// overrides. A local .env file is applied first so REVIEW_* variables can
// live there during development.
func Load(configPath string) (Config, error) {
	// .env is a development convenience; a missing file is not an error.
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("REVIEW")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("extraction.url")
	v.BindEnv("extraction.token")
	v.BindEnv("extraction.client_id")
	v.BindEnv("extraction.client_secret")
	v.BindEnv("extraction.token_url")
	v.BindEnv("redis.addr")
	v.BindEnv("cache.ttl")
	v.BindEnv("review.default_actor")
	v.BindEnv("review.fallback_address")

	// Config file not found is fine: defaults + env cover everything.
	_ = v.ReadInConfig()

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.ListenAddr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("extraction.url") {
		cfg.ExtractionURL = v.GetString("extraction.url")
	}
	if v.IsSet("extraction.token") {
		cfg.ExtractionToken = v.GetString("extraction.token")
	}
	if v.IsSet("extraction.client_id") {
		cfg.ExtractionClientID = v.GetString("extraction.client_id")
	}
	if v.IsSet("extraction.client_secret") {
		cfg.ExtractionClientSecret = v.GetString("extraction.client_secret")
	}
	if v.IsSet("extraction.token_url") {
		cfg.ExtractionTokenURL = v.GetString("extraction.token_url")
	}
	if v.IsSet("extraction.timeout") {
		cfg.ExtractionTimeout = v.GetDuration("extraction.timeout")
	}
	if v.IsSet("redis.addr") {
		cfg.RedisAddr = v.GetString("redis.addr")
	}
	if v.IsSet("cache.ttl") {
		cfg.CacheTTL = v.GetDuration("cache.ttl")
	}
	if v.IsSet("review.default_actor") {
		cfg.DefaultActor = v.GetString("review.default_actor")
	}
	if v.IsSet("review.fallback_address") {
		cfg.FallbackAddress = v.GetString("review.fallback_address")
	}
	if v.IsSet("review.queue_limit") {
		cfg.QueueLimit = v.GetInt("review.queue_limit")
	}

	return cfg, nil
}
