package registry

import "github.com/rs/zerolog"

// Lifecycle event names.
const (
	EventReloaded       = "registry.reloaded"
	EventSuspended      = "registry.suspended"
	EventResumed        = "registry.resumed"
	EventDiscoveryError = "discovery.error"
	EventEnabled        = "plugin.enabled"
	EventDisabled       = "plugin.disabled"
	EventAutoDisabled   = "plugin.auto_disabled"
)

// Event represents a registry lifecycle event.
// Minimal and stable: name + plugin ID and optional fields via key/values.
type Event struct {
	Name     string
	PluginID string
	Fields   map[string]any
}

// EventPublisher receives events from the registry. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes events to a zerolog logger.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug()
	if e.Name == EventAutoDisabled || e.Name == EventDiscoveryError {
		ev = p.Log.Warn()
	}
	if e.PluginID != "" {
		ev = ev.Str("plugin", e.PluginID)
	}
	ev.Fields(e.Fields).Msg(e.Name)
}
