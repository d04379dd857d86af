package config

import (
	"os"
	"strconv"
)

// FromEnv overlays BEE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("BEE_STORE", &cfg.Store.Backend)
	str("BEE_STORE_ADDR", &cfg.Store.Addr)
	str("BEE_STORE_PASSWORD", &cfg.Store.Password)
	num("BEE_STORE_DB", &cfg.Store.DB)
	str("BEE_DATA_DIR", &cfg.Store.DataDir)
	str("BEE_FSYNC", &cfg.Store.Fsync)

	str("BEE_KEY_PREFIX", &cfg.Keys.Prefix)
	str("BEE_KEY_MESSAGES", &cfg.Keys.Messages)
	str("BEE_KEY_WRITER", &cfg.Keys.Writer)
	str("BEE_KEY_ERRORS", &cfg.Keys.Errors)

	str("BEE_LEASE_MODE", &cfg.Lease.Mode)
	num("BEE_WRITER_KEY_EXPIRE_MS", &cfg.Lease.TTLMs)
	num("BEE_WRITE_DELAY_MS", &cfg.Writer.DelayMs)
	num("BEE_READ_DELAY_MS", &cfg.Reader.DelayMs)
	num("BEE_ERROR_ONE_IN", &cfg.Reader.ErrorOneIn)

	str("BEE_LOG_LEVEL", &cfg.Log.Level)
	str("BEE_LOG_FORMAT", &cfg.Log.Format)
	str("BEE_METRICS_ADDR", &cfg.Metrics.Addr)
}
