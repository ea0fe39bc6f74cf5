// Package config loads the YAML configuration, applies .env overrides and
// exposes the runtime Settings shared by engines and the control surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ModeConfig struct {
	Current string  `yaml:"current"`
	Higher  *string `yaml:"higher"`
}

type SymbolConfig struct {
	VolumeStep     float64 `yaml:"volume_step"`
	VolumeMin      float64 `yaml:"volume_min"`
	VolumeMax      float64 `yaml:"volume_max"`
	PricePrecision *int    `yaml:"price_precision"`
}

type EngineConfig struct {
	Name     string   `yaml:"name"`
	Mode     string   `yaml:"mode"`
	Strategy string   `yaml:"strategy"`
	Symbols  []string `yaml:"symbols"`
	LogFile  string   `yaml:"log_file"`
}

type Config struct {
	Gateway struct {
		URL       string `yaml:"url"`
		TimeoutMs int    `yaml:"timeout_ms"`
	} `yaml:"gateway"`
	Risk struct {
		Percent float64 `yaml:"percent"`
	} `yaml:"risk"`
	Polling struct {
		IntervalMs    int `yaml:"interval_ms"`
		SymbolDelayMs int `yaml:"symbol_delay_ms"`
		CandleCount   int `yaml:"candle_count"`
	} `yaml:"polling"`
	Heartbeat struct {
		IntervalMs int `yaml:"interval_ms"`
	} `yaml:"heartbeat"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`
	Notify struct {
		Telegram struct {
			Token  string `yaml:"token"`
			ChatID string `yaml:"chat_id"`
		} `yaml:"telegram"`
		Influx struct {
			URL      string `yaml:"url"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
		} `yaml:"influx"`
	} `yaml:"notify"`
	Modes    map[string]ModeConfig   `yaml:"modes"`
	Symbols  map[string]SymbolConfig `yaml:"symbols"`
	Engines  []EngineConfig          `yaml:"engines"`
	Backtest struct {
		FetchSize    int     `yaml:"fetch_size"`
		Warmup       int     `yaml:"warmup"`
		StartBalance float64 `yaml:"start_balance"`
		Workers      int     `yaml:"workers"`
	} `yaml:"backtest"`
}

func strPtr(s string) *string { return &s }

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	cfg := &Config{}
	cfg.Gateway.URL = "http://127.0.0.1:8001"
	cfg.Gateway.TimeoutMs = 10000
	cfg.Risk.Percent = 5.0
	cfg.Polling.IntervalMs = 10000
	cfg.Polling.SymbolDelayMs = 1000
	cfg.Polling.CandleCount = 200
	cfg.Heartbeat.IntervalMs = 5000
	cfg.Logging.Level = "info"
	cfg.Server.Port = 8080
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = "bot.db"
	cfg.Notify.Influx.Database = "algos"
	cfg.Modes = map[string]ModeConfig{
		"4H1H":  {Current: "1h", Higher: strPtr("4h")},
		"15m1m": {Current: "1m", Higher: strPtr("15m")},
		"4H15m": {Current: "15m", Higher: strPtr("4h")},
	}
	cfg.Symbols = map[string]SymbolConfig{}
	cfg.Backtest.FetchSize = 5000
	cfg.Backtest.Warmup = 200
	cfg.Backtest.StartBalance = 1000
	cfg.Backtest.Workers = 2
	return cfg
}

// Load decodes the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads envFile (missing file is fine) into the process
// environment and overrides the matching config keys.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v, ok := os.LookupEnv("GATEWAY_URL"); ok && v != "" {
		c.Gateway.URL = v
	}
	if v, ok := os.LookupEnv("RISK_PERCENT"); ok && v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RISK_PERCENT %q: %w", v, err)
		}
		c.Risk.Percent = p
	}
	if v, ok := os.LookupEnv("TELEGRAM_TOKEN"); ok {
		c.Notify.Telegram.Token = v
	}
	if v, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok {
		c.Notify.Telegram.ChatID = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Risk.Percent <= 0 || c.Risk.Percent > 100 {
		return fmt.Errorf("risk.percent must be in (0, 100], got %v", c.Risk.Percent)
	}
	if c.Polling.CandleCount <= 0 {
		return fmt.Errorf("polling.candle_count must be positive")
	}
	seen := make(map[string]bool)
	for _, e := range c.Engines {
		if e.Name == "" {
			return fmt.Errorf("engine without name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate engine %q", e.Name)
		}
		seen[e.Name] = true
		if _, ok := c.Modes[e.Mode]; !ok {
			return fmt.Errorf("engine %q: unknown mode %q", e.Name, e.Mode)
		}
	}
	return nil
}

// Mode resolves a named mode into the domain record.
func (c *Config) Mode(name string) (domain.Mode, error) {
	m, ok := c.Modes[name]
	if !ok {
		return domain.Mode{}, fmt.Errorf("unknown mode %q", name)
	}
	mode := domain.Mode{Name: name, Current: m.Current}
	if m.Higher != nil && *m.Higher != "" {
		h := *m.Higher
		mode.Higher = &h
	}
	return mode, nil
}

// SymbolSpec returns the constraints for symbol; price precision defaults to 2.
func (c *Config) SymbolSpec(symbol string) domain.SymbolSpec {
	spec := domain.SymbolSpec{PricePrecision: 2}
	s, ok := c.Symbols[symbol]
	if !ok {
		return spec
	}
	if s.PricePrecision != nil {
		spec.PricePrecision = *s.PricePrecision
	}
	if s.VolumeStep > 0 || s.VolumeMin > 0 || s.VolumeMax > 0 {
		spec.Volume = &domain.VolumeConstraints{Step: s.VolumeStep, Min: s.VolumeMin, Max: s.VolumeMax}
	}
	return spec
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMs) * time.Millisecond
}

func (c *Config) SymbolDelay() time.Duration {
	return time.Duration(c.Polling.SymbolDelayMs) * time.Millisecond
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Heartbeat.IntervalMs) * time.Millisecond
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutMs) * time.Millisecond
}
