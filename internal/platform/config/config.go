package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	DBMaxConns     int32
	MigrationsPath string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	JWTSecret      string
	JWTIssuer      string
	RateLimit      string // ulule/limiter format, e.g. "100-M"

	RabbitMQURL      string
	RabbitMQExchange string

	// Redis backs the period lock; empty RedisAddr disables it.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	BalanceLockExpiry time.Duration

	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxDispatchInterval time.Duration
	OutboxClaimTimeout     time.Duration

	EntryNumberMaxAttempts int
	SingleOpenPeriod       bool
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("DB_MAX_CONNS", 0)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "commerce-ledger")
	viper.SetDefault("RATE_LIMIT", "600-M")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("RABBITMQ_EXCHANGE", "ledger.events")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("BALANCE_LOCK_EXPIRY", "2m")
	viper.SetDefault("OUTBOX_BATCH_SIZE", 100)
	viper.SetDefault("OUTBOX_MAX_RETRIES", 5)
	viper.SetDefault("OUTBOX_DISPATCH_INTERVAL", "5s")
	viper.SetDefault("OUTBOX_CLAIM_TIMEOUT", "5m")
	viper.SetDefault("ENTRY_NUMBER_MAX_ATTEMPTS", 5)
	viper.SetDefault("SINGLE_OPEN_PERIOD", false)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.DBMaxConns = viper.GetInt32("DB_MAX_CONNS")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.RabbitMQURL = viper.GetString("RABBITMQ_URL")
	if cfg.RabbitMQURL == "" {
		log.Println("Warning: RABBITMQ_URL not set. Outbox events will stay pending.")
	}
	cfg.RabbitMQExchange = viper.GetString("RABBITMQ_EXCHANGE")

	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RedisDB = viper.GetInt("REDIS_DB")
	cfg.BalanceLockExpiry = durationOr("BALANCE_LOCK_EXPIRY", 2*time.Minute)

	cfg.OutboxBatchSize = positiveOr("OUTBOX_BATCH_SIZE", 100)
	cfg.OutboxMaxRetries = viper.GetInt("OUTBOX_MAX_RETRIES")
	if cfg.OutboxMaxRetries < 0 {
		cfg.OutboxMaxRetries = 0
	}
	cfg.OutboxDispatchInterval = durationOr("OUTBOX_DISPATCH_INTERVAL", 5*time.Second)
	cfg.OutboxClaimTimeout = durationOr("OUTBOX_CLAIM_TIMEOUT", 5*time.Minute)

	cfg.EntryNumberMaxAttempts = positiveOr("ENTRY_NUMBER_MAX_ATTEMPTS", 5)
	cfg.SingleOpenPeriod = viper.GetBool("SINGLE_OPEN_PERIOD")

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
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

func positiveOr(key string, fallback int) int {
	v := viper.GetInt(key)
	if v <= 0 {
		return fallback
	}
	return v
}
