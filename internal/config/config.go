package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const minSecretLen = 16

// Config holds the application configuration
type Config struct {
	DatabaseURL      string
	Port             string
	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	AdminIdentifiers []string
	RedisURL         string
	LockTTL          time.Duration
	LogLevel         string
	DevMode          bool
	BcryptCost       int
}

// Load reads configuration from an optional config.yaml and the
// environment; environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing config file is fine, env vars are enough
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_TTL_SECONDS", 21600)
	v.SetDefault("JWT_REFRESH_TTL_SECONDS", 1209600)
	v.SetDefault("ADMIN_IDENTIFIERS", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOCK_TTL_SECONDS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:      strings.TrimSpace(v.GetString("DATABASE_URL")),
		Port:             v.GetString("PORT"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		AccessTokenTTL:   time.Duration(v.GetInt("JWT_TTL_SECONDS")) * time.Second,
		RefreshTokenTTL:  time.Duration(v.GetInt("JWT_REFRESH_TTL_SECONDS")) * time.Second,
		AdminIdentifiers: splitList(v.GetString("ADMIN_IDENTIFIERS")),
		RedisURL:         strings.TrimSpace(v.GetString("REDIS_URL")),
		LockTTL:          time.Duration(v.GetInt("LOCK_TTL_SECONDS")) * time.Second,
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		DevMode:          v.GetBool("DEV_MODE"),
		BcryptCost:       v.GetInt("BCRYPT_COST"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL_SECONDS and JWT_REFRESH_TTL_SECONDS must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
