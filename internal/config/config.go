// Package config defines the top-level configuration for polyterm and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYTERM_* environment variables.
type Config struct {
	Polymarket  PolymarketConfig  `toml:"polymarket"`
	HTTP        HTTPConfig        `toml:"http"`
	Cache       CacheConfig       `toml:"cache"`
	UI          UIConfig          `toml:"ui"`
	Credentials CredentialsConfig `toml:"credentials"`
	LogLevel    string            `toml:"log_level"`
	LogFile     string            `toml:"log_file"`
}

// PolymarketConfig holds the three upstream API hosts. Each service is
// versioned independently and can be pointed elsewhere for testing.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	ClobHost  string `toml:"clob_host"`
	DataHost  string `toml:"data_host"`
}

// HTTPConfig holds transport and retry parameters shared by all adapters.
type HTTPConfig struct {
	Timeout     duration `toml:"timeout"`
	MaxRetries  int      `toml:"max_retries"`
	BackoffBase duration `toml:"backoff_base"`
}

// CacheConfig selects the response cache backend and its freshness window.
type CacheConfig struct {
	Backend string      `toml:"backend"` // "memory" or "redis"
	TTL     duration    `toml:"ttl"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection parameters for the shared cache backend.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// UIConfig holds interactive front-end parameters.
type UIConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	PageSize        int      `toml:"page_size"`
	ActiveOnly      bool     `toml:"active_only"`
}

// CredentialsConfig holds the optional Data API credentials. All market and
// order-book reads are public; only the positions endpoint uses these.
type CredentialsConfig struct {
	APIKey     string `toml:"api_key"`
	Secret     string `toml:"secret"`
	Passphrase string `toml:"passphrase"`
	Address    string `toml:"address"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
			DataHost:  "https://data-api.polymarket.com",
		},
		HTTP: HTTPConfig{
			Timeout:     duration{10 * time.Second},
			MaxRetries:  3,
			BackoffBase: duration{200 * time.Millisecond},
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     duration{15 * time.Second},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		UI: UIConfig{
			RefreshInterval: duration{10 * time.Second},
			PageSize:        20,
			ActiveOnly:      true,
		},
		LogLevel: "info",
		LogFile:  "polyterm.log",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Validate checks the configuration for inconsistencies and returns an error
// describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: data_host must not be empty")
	}

	if c.HTTP.Timeout.Duration <= 0 {
		errs = append(errs, "http: timeout must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, "http: max_retries must not be negative")
	}
	if c.HTTP.BackoffBase.Duration <= 0 {
		errs = append(errs, "http: backoff_base must be positive")
	}

	if !validCacheBackends[strings.ToLower(c.Cache.Backend)] {
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.TTL.Duration < 0 {
		errs = append(errs, "cache: ttl must not be negative")
	}
	if strings.ToLower(c.Cache.Backend) == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, "cache: redis.addr is required when backend is redis")
	}

	if c.UI.RefreshInterval.Duration <= 0 {
		errs = append(errs, "ui: refresh_interval must be positive")
	}
	if c.UI.PageSize <= 0 {
		errs = append(errs, "ui: page_size must be positive")
	}

	// Partial credentials are worse than none; the Data API rejects the
	// request either way but a half-set is always a configuration mistake.
	cr := c.Credentials
	anySet := cr.APIKey != "" || cr.Secret != "" || cr.Passphrase != ""
	allSet := cr.APIKey != "" && cr.Secret != "" && cr.Passphrase != ""
	if anySet && !allSet {
		errs = append(errs, "credentials: api_key, secret and passphrase must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
