package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.WeekStart != "sunday" || cfg.FirstHour != 8 || cfg.LastHour != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.AssistantDelay != time.Second || again.AgendaCron != defaultAgendaCron {
		t.Fatalf("reloaded config differs: %+v", again)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: 0.0.0.0:9000
week_start: friday
first_hour: 21
last_hour: 7
assistant_delay: 250ms
agenda_cron: ""
disable_seed: true
imports:
  - id: team
    url: https://example.com/team.ics
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.WeekStart != "sunday" || cfg.WeekStartDay() != time.Sunday {
		t.Fatalf("unknown week start should fall back to sunday, got %q", cfg.WeekStart)
	}
	if cfg.FirstHour != 8 || cfg.LastHour != 20 {
		t.Fatalf("inverted hours should fall back, got %d-%d", cfg.FirstHour, cfg.LastHour)
	}
	if cfg.AssistantDelay != 250*time.Millisecond {
		t.Fatalf("delay = %s", cfg.AssistantDelay)
	}
	if cfg.AgendaCron != "" {
		t.Fatalf("explicitly empty cron should stay disabled, got %q", cfg.AgendaCron)
	}
	if !cfg.DisableSeed {
		t.Fatalf("disable_seed not read")
	}
	if len(cfg.Imports) != 1 || cfg.Imports[0].ID != "team" {
		t.Fatalf("imports = %+v", cfg.Imports)
	}
	if cfg.SnapshotPath != defaultSnapshotPath {
		t.Fatalf("snapshot path = %q", cfg.SnapshotPath)
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GRIDCAL_LISTEN", "127.0.0.1:7070")
	t.Setenv("GRIDCAL_WEEK_START", "monday")
	t.Setenv("GRIDCAL_ASSISTANT_DELAY", "0s")
	t.Setenv("GRIDCAL_SORT_BY_START", "true")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7070" || cfg.WeekStartDay() != time.Monday {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.AssistantDelay != 0 || !cfg.SortByStart {
		t.Fatalf("env not applied: delay=%s sort=%v", cfg.AssistantDelay, cfg.SortByStart)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("unset env should keep defaults, got %q", cfg.LogLevel)
	}
	if cfg.BasicAuth != nil {
		t.Fatalf("basic auth should stay disabled without credentials: %+v", cfg.BasicAuth)
	}
}

func TestApplyEnvBasicAuthOnly(t *testing.T) {
	t.Setenv("GRIDCAL_BASIC_AUTH_USER", "alice")
	t.Setenv("GRIDCAL_BASIC_AUTH_PASSWORD", "secret")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username != "alice" || cfg.BasicAuth.Password != "secret" {
		t.Fatalf("env basic auth not applied: %+v", cfg.BasicAuth)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Fatalf("empty timezone: %v %v", loc, err)
	}
	cfg.Timezone = "Not/AZone"
	if loc, err := cfg.Location(); err == nil || loc != time.Local {
		t.Fatalf("bad timezone should error and fall back: %v %v", loc, err)
	}
}
