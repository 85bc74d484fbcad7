package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DatasetPath        string        `mapstructure:"DATASET_PATH"`
	RecommendTopN      int           `mapstructure:"RECOMMEND_TOP_N"`
	ClassifierMinScore float64       `mapstructure:"CLASSIFIER_MIN_SCORE"`
	JWTSigningKey      string        `mapstructure:"JWT_SIGNING_KEY"`
	TokenTTL           time.Duration `mapstructure:"TOKEN_TTL"`
	SessionIdleTTL     time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	LoginRateLimit     float64       `mapstructure:"LOGIN_RATE_LIMIT"`
	LoginBurst         int           `mapstructure:"LOGIN_BURST"`
}

// devSigningKey signs demo tokens when ENV=development and no key is set.
const devSigningKey = "medbot-development-signing-key-do-not-use"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RECOMMEND_TOP_N", 3)
	v.SetDefault("CLASSIFIER_MIN_SCORE", 0.15)
	v.SetDefault("TOKEN_TTL", "8h")
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("LOGIN_RATE_LIMIT", 1.0)
	v.SetDefault("LOGIN_BURST", 5)

	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "DATASET_PATH", "RECOMMEND_TOP_N",
		"CLASSIFIER_MIN_SCORE", "JWT_SIGNING_KEY", "TOKEN_TTL", "CORS_ORIGINS", "BODY_LIMIT",
		"LOGIN_RATE_LIMIT", "LOGIN_BURST", "SESSION_IDLE_TTL",
	} {
		v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.JWTSigningKey == "" && cfg.IsDev() {
		cfg.JWTSigningKey = devSigningKey
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

// Validate checks that the configuration is safe to run. Outside development
// a signing key of at least 32 bytes is required, since every role decision
// rests on the token it signs.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if c.JWTSigningKey == devSigningKey {
			return fmt.Errorf("JWT_SIGNING_KEY must not be the development key when ENV=%q", c.Env)
		}
	}
	if c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
	}
	if c.RecommendTopN < 1 {
		return fmt.Errorf("RECOMMEND_TOP_N must be >= 1, got %d", c.RecommendTopN)
	}
	if c.ClassifierMinScore < 0 || c.ClassifierMinScore >= 1 {
		return fmt.Errorf("CLASSIFIER_MIN_SCORE must be in [0, 1), got %v", c.ClassifierMinScore)
	}
	if c.LoginRateLimit <= 0 || c.LoginBurst < 1 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be positive and LOGIN_BURST >= 1, got %v/%d", c.LoginRateLimit, c.LoginBurst)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL)
	}
	return nil
}
