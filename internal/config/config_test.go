package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MessagesKey() != "bee_msgs" || cfg.WriterKey() != "writer" || cfg.ErrorsKey() != "err_msgs" {
		t.Fatalf("default keys: %+v", cfg.Keys)
	}
	if cfg.LeaseTTL() != 5*time.Second {
		t.Fatalf("lease ttl %v", cfg.LeaseTTL())
	}
	if cfg.WriteDelay() != 500*time.Millisecond || cfg.ReadDelay() != time.Second {
		t.Fatalf("delays %v %v", cfg.WriteDelay(), cfg.ReadDelay())
	}
	if cfg.Reader.ErrorOneIn != 20 || cfg.Writer.MessageLength != 5 {
		t.Fatalf("reader/writer defaults")
	}
	if cfg.Store.Addr != "localhost:6379" {
		t.Fatalf("store addr %s", cfg.Store.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bee.json")
	data := []byte(`{"store":{"backend":"pebble","dataDir":"/tmp/x"},"lease":{"ttlMs":2000}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendPebble || cfg.Store.DataDir != "/tmp/x" {
		t.Fatalf("store not loaded: %+v", cfg.Store)
	}
	if cfg.Lease.TTLMs != 2000 {
		t.Fatalf("expected 2000")
	}
	// untouched fields keep defaults
	if cfg.Keys.Messages != "bee_msgs" || cfg.Lease.Mode != LeaseModeAuto {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bee.yaml")
	data := []byte("keys:\n  prefix: \"hive1:\"\nreader:\n  errorOneIn: 10\nlease:\n  mode: relaxed\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MessagesKey() != "hive1:bee_msgs" {
		t.Fatalf("prefix not applied: %s", cfg.MessagesKey())
	}
	if cfg.Reader.ErrorOneIn != 10 || cfg.Lease.Mode != LeaseModeRelaxed {
		t.Fatalf("yaml values not loaded: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("BEE_STORE", "memory")
	t.Setenv("BEE_WRITER_KEY_EXPIRE_MS", "1500")
	t.Setenv("BEE_KEY_ERRORS", "bad")
	t.Setenv("BEE_ERROR_ONE_IN", "not-a-number")
	FromEnv(&cfg)
	if cfg.Store.Backend != BackendMemory {
		t.Fatalf("env override backend")
	}
	if cfg.Lease.TTLMs != 1500 {
		t.Fatalf("env override ttl")
	}
	if cfg.ErrorsKey() != "bad" {
		t.Fatalf("env override key")
	}
	if cfg.Reader.ErrorOneIn != 20 {
		t.Fatalf("unparseable value must be ignored")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"mode", func(c *Config) { c.Lease.Mode = "strict" }},
		{"ttl", func(c *Config) { c.Lease.TTLMs = 0 }},
		{"same keys", func(c *Config) { c.Keys.Errors = c.Keys.Messages }},
		{"empty key", func(c *Config) { c.Keys.Writer = "" }},
		{"negative delay", func(c *Config) { c.Reader.DelayMs = -1 }},
		{"error rate", func(c *Config) { c.Reader.ErrorOneIn = 0 }},
		{"length", func(c *Config) { c.Writer.MessageLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
