package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polyterm.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[polymarket]
gamma_host = "http://localhost:8081"

[cache]
ttl = "30s"

[ui]
page_size = 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Polymarket.GammaHost != "http://localhost:8081" {
		t.Errorf("GammaHost = %q", cfg.Polymarket.GammaHost)
	}
	if cfg.Polymarket.ClobHost != Defaults().Polymarket.ClobHost {
		t.Errorf("ClobHost lost its default: %q", cfg.Polymarket.ClobHost)
	}
	if cfg.Cache.TTL.Duration != 30*time.Second {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL.Duration)
	}
	if cfg.UI.PageSize != 50 {
		t.Errorf("PageSize = %d", cfg.UI.PageSize)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Polymarket.DataHost != Defaults().Polymarket.DataHost {
		t.Errorf("DataHost = %q", cfg.Polymarket.DataHost)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[polymarket]
clob_host = "http://from-file"
`)
	t.Setenv("POLYTERM_CLOB_HOST", "http://from-env")
	t.Setenv("POLYTERM_API_KEY", "k-123")
	t.Setenv("POLYTERM_CACHE_TTL", "45s")
	t.Setenv("POLYTERM_UI_ACTIVE_ONLY", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Polymarket.ClobHost != "http://from-env" {
		t.Errorf("ClobHost = %q, want env value", cfg.Polymarket.ClobHost)
	}
	if cfg.Credentials.APIKey != "k-123" {
		t.Errorf("APIKey = %q", cfg.Credentials.APIKey)
	}
	if cfg.Cache.TTL.Duration != 45*time.Second {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL.Duration)
	}
	if cfg.UI.ActiveOnly {
		t.Error("ActiveOnly not overridden to false")
	}
}

func TestValidateCatchesProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"empty gamma host", func(c *Config) { c.Polymarket.GammaHost = "" }, "gamma_host"},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout.Duration = 0 }, "timeout"},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }, "max_retries"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "disk" }, "backend"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Addr = ""
		}, "redis.addr"},
		{"zero page size", func(c *Config) { c.UI.PageSize = 0 }, "page_size"},
		{"partial credentials", func(c *Config) { c.Credentials.APIKey = "k" }, "together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Credentials.APIKey = "key"
	cfg.Credentials.Secret = "secret"
	cfg.Credentials.Passphrase = "pass"
	cfg.Cache.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"api_key":        red.Credentials.APIKey,
		"secret":         red.Credentials.Secret,
		"passphrase":     red.Credentials.Passphrase,
		"redis password": red.Cache.Redis.Password,
	} {
		if got != "***" {
			t.Errorf("%s = %q, want redacted", name, got)
		}
	}
	if cfg.Credentials.Secret != "secret" {
		t.Error("original config mutated")
	}
	if red.Polymarket.GammaHost != cfg.Polymarket.GammaHost {
		t.Error("non-secret field altered")
	}
}
