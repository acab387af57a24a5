package types

// PluginInfo describes one registered plugin.
type PluginInfo struct {
	// Stable plugin identity.
	ID string `json:"id"`
	// Free-text description.
	Description string `json:"description"`
	// Discovery unit the plugin was loaded from.
	Source string `json:"source,omitempty"`
	// Whether the plugin receives dispatches.
	Enabled bool `json:"enabled"`
	// Event type -> observed field names ("*" matches any field).
	Filters map[string][]string `json:"filters"`
}
