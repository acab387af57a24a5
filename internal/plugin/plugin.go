// Package plugin defines the capability contract that every dispatchable
// plugin satisfies, plus the metadata helpers shared by discovery sources.
//
// A plugin declares interest in events through Filters: a mapping from event
// type to the field names it wants to observe, where "*" matches any field.
// A plugin with no filters never receives an event.
package plugin

import (
	"context"
	"reflect"
)

// DefaultDescription is reported by plugins that do not describe themselves.
const DefaultDescription = "UNKNOWN"

// Payload is the schema-less event envelope handed to plugins. Producers and
// plugins agree on its keys by convention; the engine never inspects it.
type Payload map[string]any

// Plugin is the capability contract.
type Plugin interface {
	// Name returns the plugin identity. It must be stable across reloads.
	Name() string
	Description() string
	Filters() Filters
	// Perform handles one dispatched event. Returning ErrSkip declines the
	// event without counting as a failure.
	Perform(ctx context.Context, payload Payload, extra ...any) (any, error)
}

// Host is the read-only view of the owning registry given to plugins at
// construction time. Plugins must not retain it beyond their own lifetime.
type Host interface {
	Suspended() bool
	Enabled(id string) bool
}

// Factory constructs one plugin instance bound to host.
type Factory func(host Host) Plugin

// Base carries the registry metadata of a plugin. Embed it and implement
// Perform to satisfy Plugin; Base on its own is not a Plugin.
type Base struct {
	name        string
	description string
	filters     Filters
	host        Host
}

// NewBase returns metadata for a plugin owned by host.
func NewBase(host Host, name, description string, filters Filters) Base {
	return Base{name: name, description: description, filters: filters, host: host}
}

func (b Base) Name() string { return b.name }

func (b Base) Description() string {
	if b.description == "" {
		return DefaultDescription
	}
	return b.description
}

func (b Base) Filters() Filters { return b.filters }

// Host returns the registry that constructed the plugin, or nil.
func (b Base) Host() Host { return b.host }

// Identity returns p.Name(), falling back to the dynamic type name when the
// plugin leaves its name empty.
func Identity(p Plugin) string {
	if p == nil {
		return ""
	}
	if n := p.Name(); n != "" {
		return n
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
