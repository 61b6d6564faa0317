package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                        int               `env:"PORT" envDefault:"8080"`
	DatabaseURL                 string            `env:"DATABASE_URL,required"`
	RedisURL                    string            `env:"REDIS_URL"`
	AdminUsers                  map[string]string `env:"ADMIN_USERS" envKeyValSeparator:":"`
	AdminSessionSecret          string            `env:"ADMIN_SESSION_SECRET"`
	SessionTTLHours             int               `env:"SESSION_TTL_HOURS" envDefault:"24"`
	CodeGenerationLimit         int               `env:"CODE_GENERATION_LIMIT" envDefault:"10"`
	CodeGenerationWindowSeconds int               `env:"CODE_GENERATION_WINDOW_SECONDS" envDefault:"300"`
	LoginLimitPerMinute         int               `env:"LOGIN_LIMIT" envDefault:"5"`
	ExpiredCodeSweep            bool              `env:"EXPIRED_CODE_SWEEP" envDefault:"false"`
	MigrateOnStart              bool              `env:"MIGRATE_ON_START" envDefault:"true"`
	LogLevel                    string            `env:"LOG_LEVEL" envDefault:"info"`
	Environment                 string            `env:"APP_ENV" envDefault:"development"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) CodeGenerationWindow() time.Duration {
	return time.Duration(c.CodeGenerationWindowSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UsesRedis reports whether rate limits are shared through Redis.
func (c *Config) UsesRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate(isProduction bool) error {
	for username, hash := range c.AdminUsers {
		if username == "" {
			return fmt.Errorf("ADMIN_USERS contains an entry with an empty username")
		}
		if !strings.HasPrefix(hash, "$2a$") &&
			!strings.HasPrefix(hash, "$2b$") &&
			!strings.HasPrefix(hash, "$2y$") {
			return fmt.Errorf("ADMIN_USERS password for %q must be a bcrypt hash (generate with: go run scripts/hash-password.go <username> <password>)", username)
		}
	}

	if c.CodeGenerationLimit <= 0 || c.CodeGenerationWindowSeconds <= 0 {
		return fmt.Errorf("CODE_GENERATION_LIMIT and CODE_GENERATION_WINDOW_SECONDS must be positive")
	}

	if isProduction {
		if err := validateSecret("ADMIN_SESSION_SECRET", c.AdminSessionSecret); err != nil {
			return err
		}

		if len(c.AdminUsers) == 0 {
			log.Warn().Msg("ADMIN_USERS is empty in production: no one can issue access codes")
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: rate limits are per instance")
		} else if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
