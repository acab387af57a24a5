package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	Roots           []string `json:"roots" yaml:"roots" toml:"roots"`
	DefaultScheme   string   `json:"default_scheme" yaml:"default_scheme" toml:"default_scheme"`
	LuaPattern      string   `json:"lua_pattern" yaml:"lua_pattern" toml:"lua_pattern"`
	ManifestPattern string   `json:"manifest_pattern" yaml:"manifest_pattern" toml:"manifest_pattern"`
	Concurrency     int      `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	Suspended       bool     `json:"suspended" yaml:"suspended" toml:"suspended"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled     bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods     []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders     []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
