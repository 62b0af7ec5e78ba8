package config

import (
	"fmt"
	"os"
	"time"

	"github.com/signalhunt/market/pkg/ollama"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	JWTSecret       string        `yaml:"jwt_secret"`
	APITimeout      time.Duration `yaml:"timeout"`
	DatabasePath    string        `yaml:"database_path"`
	TokenDuration   time.Duration `yaml:"token_duration"`
	DashboardMaxAge time.Duration `yaml:"dashboard_max_age"`
	Workers         int           `yaml:"workers"`
	EngineConfig    EngineConfig  `yaml:"engine"`
	Ollama          ollama.Config `yaml:"ollama"`
}

type EngineConfig struct {
	Model         string         `yaml:"model"`
	Template      PromptTemplate `yaml:"template"`
	Timeout       time.Duration  `yaml:"timeout"`
	MinConfidence float64        `yaml:"min_confidence"`
}

type PromptTemplate struct {
	Version       string  `yaml:"version"`
	Template      string  `yaml:"template"`
	Example       string  `yaml:"example"`
	SchemaVersion *string `yaml:"schema_version,omitempty"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("MARKET_ADDR", ":8080"),
		JWTSecret:       getEnv("MARKET_JWT_SECRET", "supersecretkey"),
		APITimeout:      15 * time.Second,
		DatabasePath:    getEnv("MARKET_DATABASE_PATH", "market.db"),
		TokenDuration:   1 * time.Hour,
		DashboardMaxAge: 30 * time.Second,
		Workers:         2,
		Ollama:          ollama.DefaultConfig(),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations that are unsafe to run with. The default
// JWT secret is only tolerated when MARKET_ENV is unset or "development".
func (c *Config) Validate() error {
	env := os.Getenv("MARKET_ENV")
	if c.JWTSecret == "" || c.JWTSecret == "supersecretkey" {
		if env != "" && env != "development" {
			return fmt.Errorf("insecure jwt_secret is not allowed when MARKET_ENV=%q", env)
		}
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama = ollama.DefaultConfig()
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
