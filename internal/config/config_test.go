package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecoprog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Database.BusyTimeoutMS != 5000 {
		t.Errorf("expected busy timeout 5000, got %d", cfg.Database.BusyTimeoutMS)
	}
	if cfg.Outbox.Consumer != "ecoprog" || cfg.Outbox.BatchSize != 50 {
		t.Errorf("unexpected outbox defaults: %+v", cfg.Outbox)
	}
	if cfg.Outbox.LeaseTTL != 30*time.Second || cfg.Outbox.RetryMax != 5*time.Minute {
		t.Errorf("unexpected outbox durations: %+v", cfg.Outbox)
	}
	if cfg.Redis.Enabled || cfg.Tracing.Enabled {
		t.Error("expected redis and tracing disabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/eco.db
actor:
  id: admin
  admin: true
outbox:
  batch_size: 10
  poll_interval: 500ms
  inline: true
redis:
  enabled: true
  addr: redis:6379
  channel: schools
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/eco.db" {
		t.Errorf("expected database path from file, got %q", cfg.Database.Path)
	}
	if cfg.Actor.ID != "admin" || !cfg.Actor.Admin {
		t.Errorf("unexpected actor: %+v", cfg.Actor)
	}
	if cfg.Outbox.BatchSize != 10 || cfg.Outbox.PollInterval != 500*time.Millisecond || !cfg.Outbox.Inline {
		t.Errorf("unexpected outbox: %+v", cfg.Outbox)
	}
	if cfg.Outbox.MaxAttempts != 8 {
		t.Errorf("expected unset keys to keep defaults, got max_attempts %d", cfg.Outbox.MaxAttempts)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" || cfg.Redis.Channel != "schools" {
		t.Errorf("unexpected redis: %+v", cfg.Redis)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "actor:\n  id: from-file\n")
	t.Setenv("ECOPROG_ACTOR_ID", "from-env")
	t.Setenv("ECOPROG_OUTBOX_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Actor.ID != "from-env" {
		t.Errorf("expected env to win, got %q", cfg.Actor.ID)
	}
	if cfg.Outbox.MaxAttempts != 3 {
		t.Errorf("expected max_attempts 3, got %d", cfg.Outbox.MaxAttempts)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero batch size", "outbox:\n  batch_size: 0\n", "batch_size"},
		{"zero attempts", "outbox:\n  max_attempts: 0\n", "max_attempts"},
		{"inverted retry window", "outbox:\n  retry_initial: 10m\n  retry_max: 1m\n", "retry_max"},
		{"redis without addr", "redis:\n  enabled: true\n  addr: \"\"\n", "redis.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
