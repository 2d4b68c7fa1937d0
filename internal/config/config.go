package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names an environment variable that overrides the config path.
const EnvPath = "TTSH_CONFIG"

// Config holds the global ttsh configuration.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	History   HistoryConfig   `yaml:"history"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// SchedulerConfig controls the time-travel scheduler.
type SchedulerConfig struct {
	// Drain: reap every finished process before starting new ones,
	// rather than one per round.
	Drain bool `yaml:"drain"`
}

// HistoryConfig controls the run history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchdogConfig controls the fork-bomb guard started by -o.
type WatchdogConfig struct {
	Interval  string `yaml:"interval"`
	Threshold int    `yaml:"threshold"`
	Priority  int    `yaml:"priority"`
}

// DefaultWatchdogInterval is used when no interval is configured.
const DefaultWatchdogInterval = 100 * time.Millisecond

// IntervalDuration parses the configured scan interval or returns the default.
func (w *WatchdogConfig) IntervalDuration() time.Duration {
	if w.Interval != "" {
		dur, err := time.ParseDuration(w.Interval)
		if err == nil && dur > 0 {
			return dur
		}
	}
	return DefaultWatchdogInterval
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile, if set, receives the run's metrics in Prometheus text
	// format when ttsh exits.
	Textfile string `yaml:"textfile"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// SlogLevel maps the configured level name to a slog level, defaulting to warn.
func (l *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// DefaultConfig returns the default configuration. History is off when
// there is no home directory to keep it in.
func DefaultConfig() *Config {
	var history HistoryConfig
	if home, err := os.UserHomeDir(); err == nil {
		history = HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".local", "share", "ttsh", "history.jsonl"),
		}
	}
	return &Config{
		Scheduler: SchedulerConfig{
			Drain: true,
		},
		History: history,
		Watchdog: WatchdogConfig{
			Interval:  DefaultWatchdogInterval.String(),
			Threshold: 1000,
			Priority:  -20,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the config from $TTSH_CONFIG or the standard location
// (~/.config/ttsh/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	if path := os.Getenv(EnvPath); path != "" {
		return LoadFrom(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "ttsh", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Watchdog.Threshold <= 0 {
		return nil, fmt.Errorf("parse config %s: watchdog.threshold must be positive", path)
	}

	cfg.History.Path = expandHome(cfg.History.Path)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)
	return cfg, nil
}

// Expand ~ in configured paths.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
