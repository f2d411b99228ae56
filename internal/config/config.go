package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTesting     Environment = "testing"
)

func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvProduction, EnvTesting:
		return true
	}
	return false
}

// Config holds all environment-based configuration for the broker.
type Config struct {
	Server     Server
	Redis      Redis
	Provider   Provider
	Downstream Downstream
	CORS       CORS
}

type Server struct {
	Port           int           `env:"SERVER_PORT" envDefault:"8080"`
	Environment    Environment   `env:"SERVER_ENVIRONMENT" envDefault:"development"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
}

func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

type Redis struct {
	Addr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD" envDefault:""`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:""`
}

// Provider describes the identity provider used for refresh-token grants.
type Provider struct {
	TokenURL string        `env:"PROVIDER_TOKEN_URL" envDefault:"https://sso.bracu.ac.bd/realms/bracu/protocol/openid-connect/token"`
	ClientID string        `env:"PROVIDER_CLIENT_ID" envDefault:"slm"`
	Timeout  time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
}

// Downstream describes the schedule API the broker proxies.
type Downstream struct {
	BaseURL string        `env:"DOWNSTREAM_BASE_URL" envDefault:"https://connect.bracu.ac.bd"`
	Timeout time.Duration `env:"DOWNSTREAM_TIMEOUT" envDefault:"15s"`
}

type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if !cfg.Server.Environment.IsValid() {
		return nil, fmt.Errorf("invalid SERVER_ENVIRONMENT %q", cfg.Server.Environment)
	}
	if cfg.Provider.TokenURL == "" {
		return nil, fmt.Errorf("PROVIDER_TOKEN_URL must not be empty")
	}
	if cfg.Downstream.BaseURL == "" {
		return nil, fmt.Errorf("DOWNSTREAM_BASE_URL must not be empty")
	}

	return &cfg, nil
}
