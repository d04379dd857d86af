package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Lease modes.
const (
	LeaseModeAuto    = "auto"
	LeaseModeAtomic  = "atomic"
	LeaseModeRelaxed = "relaxed"
)

// Config is the top-level configuration loaded from file/env/flags.
type Config struct {
	Store   StoreConfig   `json:"store" yaml:"store"`
	Keys    Keys          `json:"keys" yaml:"keys"`
	Lease   LeaseConfig   `json:"lease" yaml:"lease"`
	Writer  WriterConfig  `json:"writer" yaml:"writer"`
	Reader  ReaderConfig  `json:"reader" yaml:"reader"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// StoreConfig selects and addresses the shared store.
type StoreConfig struct {
	Backend  string `json:"backend" yaml:"backend"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	// DataDir is used by the pebble backend.
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is always|interval|never for the pebble backend.
	Fsync string `json:"fsync" yaml:"fsync"`
}

// Keys names the three shared records.
type Keys struct {
	// Prefix is prepended to every key so several hives can share a store.
	Prefix   string `json:"prefix" yaml:"prefix"`
	Messages string `json:"messages" yaml:"messages"`
	Writer   string `json:"writer" yaml:"writer"`
	Errors   string `json:"errors" yaml:"errors"`
}

// LeaseConfig controls writer election.
type LeaseConfig struct {
	Mode string `json:"mode" yaml:"mode"`
	// TTLMs is the lifetime of the writer key.
	TTLMs int `json:"ttlMs" yaml:"ttlMs"`
}

// WriterConfig controls message production.
type WriterConfig struct {
	DelayMs       int `json:"delayMs" yaml:"delayMs"`
	MessageLength int `json:"messageLength" yaml:"messageLength"`
}

// ReaderConfig controls message consumption.
type ReaderConfig struct {
	DelayMs int `json:"delayMs" yaml:"delayMs"`
	// ErrorOneIn flags one in N consumed messages as erroneous.
	ErrorOneIn int `json:"errorOneIn" yaml:"errorOneIn"`
}

// LogConfig mirrors the process logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendRedis,
			Addr:    "localhost:6379",
			Fsync:   "interval",
		},
		Keys: Keys{
			Messages: "bee_msgs",
			Writer:   "writer",
			Errors:   "err_msgs",
		},
		Lease:  LeaseConfig{Mode: LeaseModeAuto, TTLMs: 5000},
		Writer: WriterConfig{DelayMs: 500, MessageLength: 5},
		Reader: ReaderConfig{DelayMs: 1000, ErrorOneIn: 20},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendPebble, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Lease.Mode {
	case LeaseModeAuto, LeaseModeAtomic, LeaseModeRelaxed:
	default:
		return fmt.Errorf("unknown lease mode %q", c.Lease.Mode)
	}
	if c.Keys.Messages == "" || c.Keys.Writer == "" || c.Keys.Errors == "" {
		return errors.New("keys.messages, keys.writer and keys.errors must be set")
	}
	if c.Keys.Messages == c.Keys.Errors || c.Keys.Messages == c.Keys.Writer || c.Keys.Errors == c.Keys.Writer {
		return errors.New("keys must be distinct")
	}
	if c.Lease.TTLMs <= 0 {
		return errors.New("lease.ttlMs must be positive")
	}
	if c.Writer.DelayMs < 0 || c.Reader.DelayMs < 0 {
		return errors.New("delays must not be negative")
	}
	if c.Writer.MessageLength <= 0 {
		return errors.New("writer.messageLength must be positive")
	}
	if c.Reader.ErrorOneIn <= 0 {
		return errors.New("reader.errorOneIn must be positive")
	}
	return nil
}

// MessagesKey returns the prefixed work queue key.
func (c Config) MessagesKey() string { return c.Keys.Prefix + c.Keys.Messages }

// WriterKey returns the prefixed lease key.
func (c Config) WriterKey() string { return c.Keys.Prefix + c.Keys.Writer }

// ErrorsKey returns the prefixed error queue key.
func (c Config) ErrorsKey() string { return c.Keys.Prefix + c.Keys.Errors }

func (c Config) LeaseTTL() time.Duration { return time.Duration(c.Lease.TTLMs) * time.Millisecond }

func (c Config) WriteDelay() time.Duration { return time.Duration(c.Writer.DelayMs) * time.Millisecond }

func (c Config) ReadDelay() time.Duration { return time.Duration(c.Reader.DelayMs) * time.Millisecond }
