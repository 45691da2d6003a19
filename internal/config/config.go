package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// WorkerConfig overrides floor-wide policy for a single worker.
type WorkerConfig struct {
	DailyLimitHours *float64 `toml:"daily_limit_hours"`
	HourlyRate      *float64 `toml:"hourly_rate"`
}

type Config struct {
	Listen              string                  `toml:"listen"`
	Database            string                  `toml:"database"`
	DailyLimitHours     float64                 `toml:"daily_limit_hours"`
	HourlyRate          float64                 `toml:"hourly_rate"`
	WarningGraceMinutes int                     `toml:"warning_grace_minutes"`
	EvalIntervalSeconds int                     `toml:"eval_interval_seconds"`
	Workers             map[string]WorkerConfig `toml:"workers"`
}

// SetDefault fills unset fields with floor defaults.
func (c *Config) SetDefault() {
	if c.Listen == "" {
		c.Listen = ":8460"
	}
	if c.Database == "" {
		c.Database = "floortimer.db"
	}
	if c.DailyLimitHours <= 0 {
		c.DailyLimitHours = 8
	}
	if c.WarningGraceMinutes <= 0 {
		c.WarningGraceMinutes = 15
	}
	if c.EvalIntervalSeconds <= 0 {
		c.EvalIntervalSeconds = 60
	}
}

// LimitFor returns the daily limit in hours for a worker, honoring overrides.
func (c *Config) LimitFor(userID string) float64 {
	if w, ok := c.Workers[userID]; ok && w.DailyLimitHours != nil && *w.DailyLimitHours > 0 {
		return *w.DailyLimitHours
	}
	return c.DailyLimitHours
}

// RateFor returns the hourly labor rate for a worker, honoring overrides.
func (c *Config) RateFor(userID string) float64 {
	if w, ok := c.Workers[userID]; ok && w.HourlyRate != nil && *w.HourlyRate >= 0 {
		return *w.HourlyRate
	}
	return c.HourlyRate
}

// WarningGrace is the countdown window before a forced stop.
func (c *Config) WarningGrace() time.Duration {
	return time.Duration(c.WarningGraceMinutes) * time.Minute
}

// EvalInterval is the guard evaluation cadence.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.EvalIntervalSeconds) * time.Second
}

func LoadFromBytes(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefault()
	return cfg, nil
}

func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromBytes(data)
}

// Manager hands out the current config and supports reload without restarting
// the guard or the API.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

func NewManager(path string) (*Manager, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg}, nil
}

// NewStaticManager wraps a fixed config, used by tests and embedding callers.
func NewStaticManager(cfg Config) *Manager {
	cfg.SetDefault()
	return &Manager{cfg: cfg}
}

// Reload re-reads the config file and swaps it in atomically.
func (m *Manager) Reload() error {
	if m.path == "" {
		return nil
	}
	cfg, err := LoadFromFile(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Current returns a copy of the active config.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
