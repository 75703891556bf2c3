package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	ServerPort  string `yaml:"server_port" env:"SERVER_PORT" env-default:"8080"`

	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"memory"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`

	FirebaseProject         string `yaml:"firebase_project_id" env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string `yaml:"-" env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredentialsFile string `yaml:"firebase_service_account_path" env:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	AuthProvider string        `yaml:"auth_provider" env:"AUTH_PROVIDER" env-default:"jwt"`
	JWTSecret    string        `yaml:"-" env:"JWT_SECRET" env-default:"your-secret-key"`
	JWTExpiry    time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY" env-default:"24h"`

	Chat ChatConfig `yaml:"chat"`

	APIRateLimitPerMinute int `yaml:"api_rate_limit_per_minute" env:"API_RATE_LIMIT_PER_MINUTE" env-default:"100"`

	// Empty allows any origin.
	WSAllowedOrigins []string `yaml:"ws_allowed_origins" env:"WS_ALLOWED_ORIGINS" env-separator:","`

	OTelEndpoint    string `yaml:"otel_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string `yaml:"otel_service_name" env:"OTEL_SERVICE_NAME" env-default:"pasarchat"`
}

type ChatConfig struct {
	RateLimitWindow       time.Duration `yaml:"rate_limit_window" env:"CHAT_RATE_LIMIT_WINDOW" env-default:"5s"`
	RateLimitMax          int           `yaml:"rate_limit_max" env:"CHAT_RATE_LIMIT_MAX" env-default:"5"`
	ProfanityWordlistPath string        `yaml:"profanity_wordlist_path" env:"PROFANITY_WORDLIST_PATH"`
}

// Load reads .env (if any), then CONFIG_PATH's YAML file or the environment alone.
func Load() (*Config, error) {
	godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory":
	case "firestore":
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.AuthProvider {
	case "jwt":
		if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	case "firebase":
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.Chat.RateLimitMax <= 0 || c.Chat.RateLimitWindow <= 0 {
		return fmt.Errorf("chat rate limit window and max must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
