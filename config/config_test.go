package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_FileWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://file/stats
nats:
  url: nats://file:4222
recalculation:
  queue_workers: 8
  sweep_interval: 1h
`)
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("RECALC_RATE_PER_MINUTE", "6")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Postgres.DSN != "postgres://file/stats" {
		t.Errorf("DSN = %q", cfg.Postgres.DSN)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("NATS URL = %q, want env override", cfg.NATS.URL)
	}
	if cfg.Recalculation.QueueWorkers != 8 || cfg.Recalculation.SweepInterval != time.Hour {
		t.Errorf("recalculation = %+v", cfg.Recalculation)
	}
	if cfg.Recalculation.RatePerMinute != 6 {
		t.Errorf("RatePerMinute = %d, want 6", cfg.Recalculation.RatePerMinute)
	}
	if cfg.HTTP.Address != ":8080" || cfg.NATS.StreamName != "STATS" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/stats")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("RECALC_SWEEP_INTERVAL", "30m")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Recalculation.SweepInterval != 30*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.Recalculation.SweepInterval)
	}
}

func TestLoadConfig_EnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database", env: map[string]string{"DATABASE_URL": "", "NATS_URL": "nats://x"}},
		{name: "missing nats", env: map[string]string{"DATABASE_URL": "postgres://x", "NATS_URL": ""}},
		{name: "bad worker count", env: map[string]string{"DATABASE_URL": "postgres://x", "NATS_URL": "nats://x", "RECALC_QUEUE_WORKERS": "many"}},
		{name: "bad interval", env: map[string]string{"DATABASE_URL": "postgres://x", "NATS_URL": "nats://x", "RECALC_SWEEP_INTERVAL": "daily"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "postgres: [unterminated")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for invalid yaml")
	}
}
