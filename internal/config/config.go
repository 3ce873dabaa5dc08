package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir       string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTL        time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	AuthRateLimitRPS    float64       `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst  int           `mapstructure:"AUTH_RATE_LIMIT_BURST"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic          string        `mapstructure:"KAFKA_TOPIC"`
	CheckInHistoryLimit int           `mapstructure:"CHECKIN_HISTORY_LIMIT"`
}

// devSigningKey is only accepted when ENV=development.
const devSigningKey = "care-hospital-portal-development-key"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_ISSUER", "care-hospital-portal")
	v.SetDefault("AUTH_TOKEN_TTL", "24h")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 1)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 5)
	v.SetDefault("KAFKA_TOPIC", "portal-events")
	v.SetDefault("CHECKIN_HISTORY_LIMIT", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
		"CORS_ORIGINS", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_TOKEN_TTL",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_RATE_LIMIT_RPS", "AUTH_RATE_LIMIT_BURST",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "CHECKIN_HISTORY_LIMIT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		if cfg.AuthSigningKey == "" {
			cfg.AuthSigningKey = devSigningKey
		}
		log.Println("WARNING: portal is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: a fixed token signing key is used unless AUTH_SIGNING_KEY is set.")
	}

	return cfg, nil
}

// splitList normalises comma separated env values into a trimmed slice.
func splitList(current []string, raw string) []string {
	if len(current) > 0 {
		raw = strings.Join(current, ",")
	}
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// KafkaEnabled reports whether domain events are forwarded to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Validate checks that the configuration is safe to run. Outside development
// a real signing key of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if c.AuthSigningKey == devSigningKey {
			return fmt.Errorf("AUTH_SIGNING_KEY must not be the development key when ENV=%q", c.Env)
		}
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
		}
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive, got %s", c.AuthTokenTTL)
	}
	if c.CheckInHistoryLimit <= 0 {
		return fmt.Errorf("CHECKIN_HISTORY_LIMIT must be positive, got %d", c.CheckInHistoryLimit)
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
