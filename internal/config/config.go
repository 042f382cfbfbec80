package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides (MAILSORT_SERVICE_URL, ...).
const EnvPrefix = "MAILSORT_"

// Config holds application configuration.
type Config struct {
	// ServiceURL is the base URL of the classification service (/classify, /config).
	ServiceURL string `koanf:"service_url"`

	// DefaultBrandName is shown when neither the service nor the user supplied a name.
	DefaultBrandName string `koanf:"default_brand_name"`

	// DefaultLogoURL is used when neither the service nor the user supplied a logo.
	DefaultLogoURL string `koanf:"default_logo_url"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WebBind and WebPort are the defaults for `mailsort serve`.
	WebBind string `koanf:"web_bind"`
	WebPort int    `koanf:"web_port"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `koanf:"db_max_idle_conns"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `koanf:"disabled_tools"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceURL:       "http://127.0.0.1:5000",
		DefaultBrandName: "AutoU",
		DefaultLogoURL:   "/static/logo.png",
		LogLevel:         "info",
		WebBind:          "127.0.0.1",
		WebPort:          8765,
	}
}

// Load loads configuration from baseDir/config.yaml, then MAILSORT_* environment variables.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.mailsort.
func Load(baseDir string) (*Config, error) {
	k := koanf.New(".")

	path := filepath.Join(baseDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// Keys are flat, so "." never appears in a transformed name.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.ServiceURL = strings.TrimRight(strings.TrimSpace(cfg.ServiceURL), "/")
	cfg.DisabledTools = cleanStringSlice(cfg.DisabledTools)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps MAILSORT_SERVICE_URL to service_url.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func (c *Config) validate() error {
	if c.ServiceURL == "" {
		return fmt.Errorf("service_url must not be empty")
	}
	if !strings.HasPrefix(c.ServiceURL, "http://") && !strings.HasPrefix(c.ServiceURL, "https://") {
		return fmt.Errorf("service_url must be an http(s) URL, got %q", c.ServiceURL)
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("web_port out of range: %d", c.WebPort)
	}
	return nil
}

// cleanStringSlice trims whitespace and removes empty entries and duplicates.
func cleanStringSlice(in []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
