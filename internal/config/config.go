package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds process configuration read from the environment.
type Config struct {
	Port        string        `env:"STUDYPLANNER_PORT"         envDefault:"8080"`
	DBPath      string        `env:"STUDYPLANNER_DB_PATH"      envDefault:"studyplanner.db"`
	LogLevel    string        `env:"STUDYPLANNER_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string        `env:"STUDYPLANNER_LOG_FORMAT"   envDefault:"text"`
	JWTSecret   string        `env:"STUDYPLANNER_JWT_SECRET"`
	TokenTTL    time.Duration `env:"STUDYPLANNER_TOKEN_TTL"    envDefault:"168h"`
	Timezone    string        `env:"STUDYPLANNER_TIMEZONE"     envDefault:"Local"`
	FrontendURL string        `env:"STUDYPLANNER_FRONTEND_URL"`
	MetricsUser string        `env:"STUDYPLANNER_METRICS_USER"`
	MetricsPass string        `env:"STUDYPLANNER_METRICS_PASS"`

	// Location is resolved from Timezone and decides where one day ends
	// and the next begins for streaks.
	Location *time.Location `env:"-"`
}

// Load reads an optional .env file, then parses and validates the
// environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("STUDYPLANNER_JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("STUDYPLANNER_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return fmt.Errorf("load STUDYPLANNER_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

// AllowedOrigins splits FrontendURL on commas. An empty value allows any
// origin.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, strings.TrimRight(o, "/"))
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
