package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Defaults applied by WithDefaults.
const (
	DefaultAddr            = ":8080"
	DefaultScheme          = "file"
	DefaultLuaPattern      = "*.lua"
	DefaultManifestPattern = "*.plugin.{yaml,yml,json,toml}"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMaxBodyBytes    = 1 << 20
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PLUGIND_"

// WithDefaults returns a copy of c with unspecified fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DefaultScheme == "" {
		c.DefaultScheme = DefaultScheme
	}
	if c.LuaPattern == "" {
		c.LuaPattern = DefaultLuaPattern
	}
	if c.ManifestPattern == "" {
		c.ManifestPattern = DefaultManifestPattern
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.CORSEnabled {
		if len(c.CORSOrigins) == 0 {
			c.CORSOrigins = []string{"*"}
		}
		if len(c.CORSMethods) == 0 {
			c.CORSMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
		}
		if len(c.CORSHeaders) == 0 {
			c.CORSHeaders = []string{"Content-Type", "X-Log-Level"}
		}
	}
	return c
}

// Validate reports the first invalid field of a defaulted Config.
func (c Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("config: at least one root is required")
	}
	for _, r := range c.Roots {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("config: empty root in %q", c.Roots)
		}
	}
	switch c.DefaultScheme {
	case "file", "catalog":
	default:
		return fmt.Errorf("config: default_scheme %q must be file or catalog", c.DefaultScheme)
	}
	for name, p := range map[string]string{"lua_pattern": c.LuaPattern, "manifest_pattern": c.ManifestPattern} {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("config: %s %q is not a valid pattern", name, p)
		}
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: log_format %q must be json or console", c.LogFormat)
	}
	return nil
}

// ApplyEnv overrides c with PLUGIND_* variables found through getenv.
// List values are comma separated.
func ApplyEnv(c Config, getenv func(string) string) (Config, error) {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := SplitCSV(getenv(EnvPrefix + key)); len(v) > 0 {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	list("ROOTS", &c.Roots)
	str("DEFAULT_SCHEME", &c.DefaultScheme)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	list("CORS_ORIGINS", &c.CORSOrigins)
	if v := getenv(EnvPrefix + "CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("config: %sCONCURRENCY: %w", EnvPrefix, err)
		}
		c.Concurrency = n
	}
	for key, dst := range map[string]*bool{"SUSPENDED": &c.Suspended, "CORS_ENABLED": &c.CORSEnabled} {
		if v := getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return c, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}
	return c, nil
}

// SplitCSV splits a comma separated list, trimming blanks and dropping
// empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
