package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
env: production
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 15m
wellness:
  study: 10s
  failure_threshold: 2
  escalation_policy: once
  word_sets:
    - [apple, chair, ocean, guitar]
  distractors: [elephant]
notify:
  ses:
    region: us-east-1
    from_email: alerts@example.com
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "production" || cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Wellness.WordSets) != 1 || cfg.Wellness.WordSets[0][3] != "guitar" {
		t.Fatalf("unexpected word sets %v", cfg.Wellness.WordSets)
	}
	if cfg.Notify.SES.FromEmail != "alerts@example.com" {
		t.Fatalf("unexpected ses config %+v", cfg.Notify.SES)
	}
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("WELLNESS_FAILURE_THRESHOLD", "3")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "redis:6380" || cfg.Wellness.FailureThreshold != 3 {
		t.Fatalf("env did not override yaml: %+v", cfg)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unset variables must keep yaml values, got port %q", cfg.Server.Port)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/wellness")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://localhost/wellness" {
		t.Fatalf("unexpected postgres url %q", cfg.Postgres.URL)
	}
}

func TestDurationOr(t *testing.T) {
	if got := DurationOr("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %v", got)
	}
	if got := DurationOr("garbage", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %v", got)
	}
	if got := DurationOr("30m", time.Minute); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", got)
	}
}
