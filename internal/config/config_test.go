package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Scheduler.Drain {
		t.Error("expected drain on by default")
	}
	if cfg.Watchdog.Threshold != 1000 || cfg.Watchdog.Priority != -20 {
		t.Errorf("unexpected watchdog defaults: %+v", cfg.Watchdog)
	}
	if got := cfg.Watchdog.IntervalDuration(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", got)
	}
	if got := cfg.Log.SlogLevel(); got != slog.LevelWarn {
		t.Errorf("expected warn level, got %v", got)
	}
	if !strings.HasSuffix(cfg.History.Path, filepath.Join("ttsh", "history.jsonl")) {
		t.Errorf("unexpected history path %q", cfg.History.Path)
	}
}

func TestLoadFromOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
scheduler:
  drain: false
history:
  enabled: false
  path: ~/hist.jsonl
watchdog:
  interval: 250ms
  threshold: 50
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scheduler.Drain {
		t.Error("expected drain off")
	}
	if cfg.History.Enabled {
		t.Error("expected history disabled")
	}
	home, _ := os.UserHomeDir()
	if cfg.History.Path != filepath.Join(home, "hist.jsonl") {
		t.Errorf("expected ~ expanded, got %q", cfg.History.Path)
	}
	if got := cfg.Watchdog.IntervalDuration(); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	if cfg.Watchdog.Threshold != 50 {
		t.Errorf("expected threshold 50, got %d", cfg.Watchdog.Threshold)
	}
	// Unset keys keep their defaults.
	if cfg.Watchdog.Priority != -20 {
		t.Errorf("expected default priority, got %d", cfg.Watchdog.Priority)
	}
	if got := cfg.Log.SlogLevel(); got != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", got)
	}
}

func TestLoadFromRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("watchdog:\n  threshold: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for zero threshold")
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadHonoursEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  drain: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scheduler.Drain {
		t.Error("expected config from $TTSH_CONFIG")
	}
}

func TestIntervalDurationFallsBack(t *testing.T) {
	for _, s := range []string{"", "soon", "-5ms"} {
		w := WatchdogConfig{Interval: s}
		if got := w.IntervalDuration(); got != DefaultWatchdogInterval {
			t.Errorf("interval %q: expected default, got %v", s, got)
		}
	}
}

func TestDefaultConfigWithoutHome(t *testing.T) {
	t.Setenv("HOME", "")
	cfg := DefaultConfig()
	if cfg.History.Enabled || cfg.History.Path != "" {
		t.Errorf("expected history off without a home directory, got %+v", cfg.History)
	}
	if got := expandHome("~/metrics.prom"); got != "~/metrics.prom" {
		t.Errorf("expected path left alone, got %q", got)
	}
}
