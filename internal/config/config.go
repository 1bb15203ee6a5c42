package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey     string   `mapstructure:"AUTH_SIGNING_KEY"`
	TokenTTLMinutes    int      `mapstructure:"TOKEN_TTL_MINUTES"`
	ICDClientID        string   `mapstructure:"ICD_CLIENT_ID"`
	ICDClientSecret    string   `mapstructure:"ICD_CLIENT_SECRET"`
	ICDBaseURL         string   `mapstructure:"ICD_API_BASE_URL"`
	ICDAPIVersion      string   `mapstructure:"ICD_API_VERSION"`
	HTTPTimeoutSeconds int      `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	CacheBackend       string   `mapstructure:"CACHE_BACKEND"`
	CacheDir           string   `mapstructure:"CACHE_DIR"`
	CacheDurationHours int      `mapstructure:"CACHE_DURATION_HOURS"`
	DatasetPath        string   `mapstructure:"DATASET_PATH"`
	WatchDataset       bool     `mapstructure:"WATCH_DATASET"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("ICD_API_BASE_URL", "https://id.who.int")
	v.SetDefault("ICD_API_VERSION", "release/11/2024-01")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("CACHE_BACKEND", "file")
	v.SetDefault("CACHE_DIR", "cache")
	v.SetDefault("CACHE_DURATION_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("ICD_CLIENT_ID")
	v.BindEnv("ICD_CLIENT_SECRET")
	v.BindEnv("ICD_API_BASE_URL")
	v.BindEnv("ICD_API_VERSION")
	v.BindEnv("HTTP_TIMEOUT_SECONDS")
	v.BindEnv("CACHE_BACKEND")
	v.BindEnv("CACHE_DIR")
	v.BindEnv("CACHE_DURATION_HOURS")
	v.BindEnv("DATASET_PATH")
	v.BindEnv("WATCH_DATASET")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Dev auth is active — all requests are accepted without a token.")
		log.Println("WARNING: Set ENV=production and AUTH_SIGNING_KEY for real deployments.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ICDConfigured reports whether WHO ICD-11 API credentials are present.
// Without them the enrichment pipeline runs entirely on the static fallback
// mapping table.
func (c *Config) ICDConfigured() bool {
	return c.ICDClientID != "" && c.ICDClientSecret != ""
}

// Validate checks that the configuration is safe to run. Outside development
// mode AUTH_SIGNING_KEY must be set so that bearer tokens are actually
// verifiable, and the cache backend must be one of the known stores.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is %q", c.Env)
	}

	switch c.CacheBackend {
	case "file", "memory", "bolt":
	default:
		return fmt.Errorf("CACHE_BACKEND must be \"file\", \"memory\", or \"bolt\", got %q", c.CacheBackend)
	}

	if c.CacheDurationHours <= 0 {
		return fmt.Errorf("CACHE_DURATION_HOURS must be positive, got %d", c.CacheDurationHours)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTPTimeoutSeconds)
	}

	if c.WatchDataset && c.DatasetPath == "" {
		return fmt.Errorf("DATASET_PATH is required when WATCH_DATASET is true")
	}

	return nil
}
