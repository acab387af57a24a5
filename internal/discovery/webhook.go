package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"plugind/internal/plugin"
)

// DefaultManifestPattern matches webhook plugin manifests.
const DefaultManifestPattern = "*.plugin.{yaml,yml,json,toml}"

// DefaultMaxResponseBytes caps a webhook response body when the manifest
// sets no limit.
const DefaultMaxResponseBytes = 1 << 20

// Manifest describes a plugin implemented by a remote HTTP endpoint.
type Manifest struct {
	Name        string              `json:"name" yaml:"name" toml:"name"`
	Description string              `json:"description" yaml:"description" toml:"description"`
	Filters     map[string][]string `json:"filters" yaml:"filters" toml:"filters"`
	URL         string              `json:"url" yaml:"url" toml:"url"`
	Method      string              `json:"method" yaml:"method" toml:"method"`
	Headers     map[string]string   `json:"headers" yaml:"headers" toml:"headers"`
	// Timeout bounds each HTTP call, e.g. "5s". Empty means no limit beyond
	// the caller's context.
	Timeout string `json:"timeout" yaml:"timeout" toml:"timeout"`
	// MaxResponseBytes caps the response body; 0 means DefaultMaxResponseBytes.
	MaxResponseBytes int `json:"max_response_bytes" yaml:"max_response_bytes" toml:"max_response_bytes"`
}

// LoadManifest reads a manifest file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &m)
	case ".json":
		err = json.Unmarshal(b, &m)
	case ".toml":
		err = toml.Unmarshal(b, &m)
	default:
		return m, fmt.Errorf("unsupported manifest extension: %s", ext)
	}
	if err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Validate checks required fields and normalizes defaults.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return errors.New("manifest: url is required")
	}
	if m.Method == "" {
		m.Method = http.MethodPost
	}
	m.Method = strings.ToUpper(m.Method)
	switch {
	case m.MaxResponseBytes < 0:
		return errors.New("manifest: max_response_bytes must not be negative")
	case m.MaxResponseBytes == 0:
		m.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if m.Timeout != "" {
		if _, err := time.ParseDuration(m.Timeout); err != nil {
			return fmt.Errorf("manifest: timeout: %w", err)
		}
	}
	return nil
}

// ManifestLoader loads webhook plugins from manifest files.
type ManifestLoader struct {
	pattern string
	client  *resty.Client
}

// NewManifestLoader returns a loader sharing client between the plugins it
// creates. A nil client gets a default resty client.
func NewManifestLoader(pattern string, client *resty.Client) *ManifestLoader {
	if pattern == "" {
		pattern = DefaultManifestPattern
	}
	if client == nil {
		client = resty.New()
	}
	return &ManifestLoader{pattern: pattern, client: client}
}

func (l *ManifestLoader) Pattern() string { return l.pattern }

func (l *ManifestLoader) Load(_ context.Context, path string, host plugin.Host) (plugin.Plugin, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	name := m.Name
	if name == "" {
		name = stem(path)
	}
	var timeout time.Duration
	if m.Timeout != "" {
		timeout, _ = time.ParseDuration(m.Timeout)
	}
	return &WebhookPlugin{
		Base:     plugin.NewBase(host, name, m.Description, plugin.Filters(m.Filters)),
		manifest: m,
		timeout:  timeout,
		client:   l.client,
	}, nil
}

// WebhookRequest is the JSON body posted to a webhook plugin.
type WebhookRequest struct {
	Plugin  string         `json:"plugin"`
	Payload plugin.Payload `json:"payload"`
	Extra   []any          `json:"extra,omitempty"`
}

// WebhookPlugin forwards events to an HTTP endpoint.
type WebhookPlugin struct {
	plugin.Base
	manifest Manifest
	timeout  time.Duration
	client   *resty.Client
}

// URL returns the endpoint events are sent to.
func (p *WebhookPlugin) URL() string { return p.manifest.URL }

// Perform sends the event and decodes a JSON response body as the result.
// A 204 or empty body yields nil; 422 declines the event; any other non-2xx
// status is a failure.
func (p *WebhookPlugin) Perform(ctx context.Context, payload plugin.Payload, extra ...any) (any, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetResponseBodyLimit(p.manifest.MaxResponseBytes).
		SetHeaders(p.manifest.Headers).
		SetHeader("Content-Type", "application/json").
		SetBody(WebhookRequest{Plugin: p.Name(), Payload: payload, Extra: extra}).
		Execute(p.manifest.Method, p.manifest.URL)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", p.manifest.URL, err)
	}
	if resp.StatusCode() == http.StatusUnprocessableEntity {
		return nil, plugin.ErrSkip
	}
	if resp.IsError() {
		return nil, fmt.Errorf("webhook %s: status %d", p.manifest.URL, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, nil
	}
	if ct := resp.Header().Get("Content-Type"); strings.HasPrefix(strings.ToLower(ct), "application/json") {
		var out any
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("webhook %s: decode response: %w", p.manifest.URL, err)
		}
		return out, nil
	}
	return string(body), nil
}
