package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYTERM_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus overrides only. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYTERM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "POLYTERM_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "POLYTERM_CLOB_HOST")
	setStr(&cfg.Polymarket.DataHost, "POLYTERM_DATA_HOST")

	// ── HTTP ──
	setDuration(&cfg.HTTP.Timeout, "POLYTERM_HTTP_TIMEOUT")
	setInt(&cfg.HTTP.MaxRetries, "POLYTERM_HTTP_MAX_RETRIES")
	setDuration(&cfg.HTTP.BackoffBase, "POLYTERM_HTTP_BACKOFF_BASE")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "POLYTERM_CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "POLYTERM_CACHE_TTL")
	setStr(&cfg.Cache.Redis.Addr, "POLYTERM_REDIS_ADDR")
	setStr(&cfg.Cache.Redis.Password, "POLYTERM_REDIS_PASSWORD")
	setInt(&cfg.Cache.Redis.DB, "POLYTERM_REDIS_DB")
	setBool(&cfg.Cache.Redis.TLSEnabled, "POLYTERM_REDIS_TLS_ENABLED")

	// ── UI ──
	setDuration(&cfg.UI.RefreshInterval, "POLYTERM_UI_REFRESH_INTERVAL")
	setInt(&cfg.UI.PageSize, "POLYTERM_UI_PAGE_SIZE")
	setBool(&cfg.UI.ActiveOnly, "POLYTERM_UI_ACTIVE_ONLY")

	// ── Credentials ──
	setStr(&cfg.Credentials.APIKey, "POLYTERM_API_KEY")
	setStr(&cfg.Credentials.Secret, "POLYTERM_SECRET")
	setStr(&cfg.Credentials.Passphrase, "POLYTERM_PASSPHRASE")
	setStr(&cfg.Credentials.Address, "POLYTERM_ADDRESS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLYTERM_LOG_LEVEL")
	setStr(&cfg.LogFile, "POLYTERM_LOG_FILE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
