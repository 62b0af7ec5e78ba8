package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalhunt/market/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DatabasePath != "market.db" {
		t.Fatalf("database_path = %q", cfg.DatabasePath)
	}
	if cfg.DashboardMaxAge != 30*time.Second {
		t.Fatalf("dashboard_max_age = %v, want 30s", cfg.DashboardMaxAge)
	}
	if cfg.Workers != 2 {
		t.Fatalf("workers = %d, want 2", cfg.Workers)
	}
	if cfg.Ollama.BaseURL == "" {
		t.Fatal("ollama base url default missing")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MARKET_ADDR", ":9999")
	t.Setenv("MARKET_DATABASE_PATH", "/tmp/test-market.db")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr = %q, want :9999", cfg.Addr)
	}
	if cfg.DatabasePath != "/tmp/test-market.db" {
		t.Fatalf("database_path = %q", cfg.DatabasePath)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
addr: ":7070"
jwt_secret: yaml-secret
workers: 8
engine:
  model: llama3
  min_confidence: 0.7
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.JWTSecret != "yaml-secret" {
		t.Fatalf("yaml overlay not applied: %+v", cfg)
	}
	if cfg.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.EngineConfig.Model != "llama3" {
		t.Fatalf("engine model = %q", cfg.EngineConfig.Model)
	}
	// untouched fields keep defaults
	if cfg.DatabasePath != "market.db" {
		t.Fatalf("database_path = %q, want default", cfg.DatabasePath)
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("MARKET_ENV", "production")

	cfg := &config.Config{
		Addr:      ":8080",
		JWTSecret: "supersecretkey",
		Workers:   2,
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("MARKET_ENV", "development")

	cfg := &config.Config{
		Addr:      ":8080",
		JWTSecret: "supersecretkey",
		Workers:   2,
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_NonPositiveWorkers(t *testing.T) {
	cfg := &config.Config{
		Addr:      ":8080",
		JWTSecret: "strongsecret",
		Workers:   0,
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail when workers is zero")
	}
}

func TestValidate_OllamaDefaultsPopulated(t *testing.T) {
	cfg := &config.Config{
		Addr:      ":8080",
		JWTSecret: "strongsecret",
		Workers:   2,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.Ollama.BaseURL == "" {
		t.Fatal("expected Validate to populate ollama defaults")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := config.LoadConfig("/no/such/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
