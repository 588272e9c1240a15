package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.SessionsDir != "sessions" || !cfg.Persist {
		t.Errorf("Expected persistence in sessions/, got %q persist=%v", cfg.SessionsDir, cfg.Persist)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h TTL, got %s", cfg.SessionTTL)
	}
	if cfg.StrictGameOver {
		t.Error("Expected strict game over to default to false")
	}
	if cfg.Addr() != "localhost:8080" {
		t.Errorf("Unexpected addr %s", cfg.Addr())
	}
	if cfg.BaseURL() != "http://localhost:8080" {
		t.Errorf("Unexpected base URL %s", cfg.BaseURL())
	}
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("GAME2048_PORT", "9090")
	t.Setenv("GAME2048_SEED", "42")
	t.Setenv("GAME2048_SESSION_TTL", "30m")
	t.Setenv("GAME2048_STRICT_GAME_OVER", "true")
	t.Setenv("NGROK_ENABLED", "1")
	t.Setenv("NGROK_DOMAIN", "play.example.dev")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Seed)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL, got %s", cfg.SessionTTL)
	}
	if !cfg.StrictGameOver {
		t.Error("Expected strict game over")
	}
	if !cfg.Ngrok.Enabled || cfg.Ngrok.Domain != "play.example.dev" {
		t.Errorf("Unexpected ngrok config %+v", cfg.Ngrok)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable port", "GAME2048_PORT", "eighty"},
		{"port out of range", "GAME2048_PORT", "70000"},
		{"zero ttl", "GAME2048_SESSION_TTL", "0s"},
		{"negative sync", "GAME2048_SYNC_INTERVAL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Parse(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Persist:         false,
		SessionTTL:      time.Hour,
		CleanupInterval: time.Minute,
		SyncInterval:    time.Second,
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected in-memory config without sessions dir to be valid, got %v", err)
	}

	cfg.Persist = true
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	os.Unsetenv("GAME2048_SESSIONS_DIR")
	t.Cleanup(func() { os.Unsetenv("GAME2048_SESSIONS_DIR") })

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("GAME2048_SESSIONS_DIR=/tmp/game2048-sessions\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SessionsDir != "/tmp/game2048-sessions" {
		t.Errorf("Expected sessions dir from env file, got %s", cfg.SessionsDir)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Expected missing env file to be ignored, got %v", err)
	}
}
