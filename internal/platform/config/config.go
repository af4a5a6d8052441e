package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	EngineName            string
	DefaultCurrencySymbol string

	TrashRetention       time.Duration
	TrashSweepInterval   time.Duration
	BackgroundStartDelay time.Duration
	UpdateOnStartup      bool

	RateLimitRPS float64
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Environment variables override .env values which override the
// defaults.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENGINE_NAME", "default")
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("TRASH_RETENTION", "5m")
	viper.SetDefault("TRASH_SWEEP_INTERVAL", "1m")
	viper.SetDefault("BACKGROUND_START_DELAY", "10s")
	viper.SetDefault("UPDATE_ON_STARTUP", false)
	viper.SetDefault("RATE_LIMIT_RPS", 25.0)

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:           viper.GetString("PGSQL_URL"),
		Port:                  viper.GetString("PORT"),
		IsProduction:          viper.GetBool("IS_PRODUCTION"),
		EngineName:            viper.GetString("ENGINE_NAME"),
		DefaultCurrencySymbol: viper.GetString("DEFAULT_CURRENCY"),
		UpdateOnStartup:       viper.GetBool("UPDATE_ON_STARTUP"),
		RateLimitRPS:          viper.GetFloat64("RATE_LIMIT_RPS"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL not set. Falling back to the in-memory store; nothing will survive restart.")
	}

	cfg.TrashRetention = parseDuration("TRASH_RETENTION", 5*time.Minute)
	cfg.TrashSweepInterval = parseDuration("TRASH_SWEEP_INTERVAL", time.Minute)
	cfg.BackgroundStartDelay = parseDuration("BACKGROUND_START_DELAY", 10*time.Second)

	return cfg, nil
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
