package types

// PluginsResponse wraps the plugin list returned by GET /plugins and POST /reload.
type PluginsResponse struct {
	Plugins []PluginInfo `json:"plugins"`
	// Whether the registry is globally suspended.
	Suspended bool `json:"suspended"`
}

// SuspendRequest is the body of PUT /suspend. Suspended must be a JSON boolean.
type SuspendRequest struct {
	Suspended any `json:"suspended"`
}

// EnableRequest is the body of PUT /plugins/{id}/enabled. Enabled must be a JSON boolean.
type EnableRequest struct {
	Enabled any `json:"enabled"`
}

// EnableResponse reports the outcome of an enable/disable request.
type EnableResponse struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	// False when the identity is unknown; the request was a no-op.
	Known bool `json:"known"`
}

// DispatchRequest is the body of POST /dispatch.
type DispatchRequest struct {
	EventType string         `json:"event_type"`
	Field     string         `json:"field"`
	Payload   map[string]any `json:"payload"`
	Extra     []any          `json:"extra,omitempty"`
}

// DispatchResult is one plugin's outcome for a dispatch.
type DispatchResult struct {
	// One of value, failure, skipped, disabled.
	Outcome string `json:"outcome"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DispatchResponse is returned by POST /dispatch. Plugins not eligible for the
// event are absent from Results.
type DispatchResponse struct {
	EventType string                    `json:"event_type"`
	Field     string                    `json:"field"`
	Suspended bool                      `json:"suspended"`
	Results   map[string]DispatchResult `json:"results"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Whether dispatch is globally suspended.
	Suspended bool `json:"suspended"`
	// Configured discovery roots.
	Roots []string `json:"roots"`
	// Locations traversed by the last discovery pass.
	SeenRoots []string `json:"seen_roots"`
	// Per-unit failures of the last discovery pass.
	DiscoveryErrors []string `json:"discovery_errors,omitempty"`
	Plugins int `json:"plugins"`
	Enabled int `json:"enabled"`
	Disabled int `json:"disabled"`
	// Number of completed reloads.
	Reloads uint64 `json:"reloads"`
	// Time of the last reload (unix seconds).
	LastReloadUnix int64 `json:"last_reload_unix"`
	// Uptime of the server in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
