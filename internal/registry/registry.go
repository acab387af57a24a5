package registry

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"plugind/internal/discovery"
	"plugind/internal/plugin"
)

// generation is the entry set produced by one discovery pass. Dispatches hold
// wg while they use its plugins.
type generation struct {
	entries []*entry
	index   map[string]*entry
	wg      sync.WaitGroup
}

// Registry owns the plugins discovered from its roots. It implements
// plugin.Host.
type Registry struct {
	mu        sync.RWMutex
	reloadMu  sync.Mutex
	suspendMu sync.Mutex

	source      discovery.Source
	roots       []string
	concurrency int

	suspended  bool
	gen        *generation
	seen       []string
	errs       []error
	reloads    uint64
	lastReload time.Time
	created    time.Time
	closed     bool

	log zerolog.Logger
	pub EventPublisher
}

// New builds a registry over roots and runs the first discovery pass.
func New(ctx context.Context, src discovery.Source, roots ...string) (*Registry, error) {
	r, err := NewWithConfig(Config{Source: src, Roots: roots})
	if err != nil {
		return nil, err
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload discards every entry and rediscovers plugins from the configured
// roots. All entries of the new set start enabled. Per-unit discovery
// failures are recorded in DiscoveryErrors and never returned.
//
// A pass interrupted by ctx is discarded: the current entries stay in place
// and ctx.Err() is returned.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w := discovery.NewWalk(r)
	r.source.Discover(ctx, r.roots, w)
	if err := ctx.Err(); err != nil {
		for _, u := range w.Units() {
			r.closePlugin(u.ID, u.Plugin)
		}
		r.log.Warn().Err(err).Strs("roots", r.roots).Msg("reload interrupted; keeping current plugins")
		return err
	}

	next := &generation{index: make(map[string]*entry)}
	var replaced []plugin.Plugin
	for _, u := range w.Units() {
		filters := u.Plugin.Filters().Clone()
		if e, ok := next.index[u.ID]; ok {
			r.log.Warn().Str("plugin", u.ID).Str("previous", e.source).Str("source", u.Source).Msg("duplicate plugin identity; keeping the later one")
			replaced = append(replaced, e.plugin)
			e.plugin, e.source, e.filters = u.Plugin, u.Source, filters
			continue
		}
		e := &entry{id: u.ID, source: u.Source, plugin: u.Plugin, filters: filters, enabled: true}
		next.entries = append(next.entries, e)
		next.index[u.ID] = e
	}
	errs := w.Errors()

	r.mu.Lock()
	prev := r.gen
	r.gen = next
	r.seen = w.Seen()
	r.errs = errs
	r.reloads++
	r.lastReload = time.Now()
	r.mu.Unlock()

	// In-flight dispatches may still be calling the previous plugins.
	prev.wg.Wait()
	for _, e := range prev.entries {
		r.closePlugin(e.id, e.plugin)
	}
	for _, p := range replaced {
		r.closePlugin(plugin.Identity(p), p)
	}

	reloadsTotal.Inc()
	for _, err := range errs {
		discoveryErrorsTotal.Inc()
		r.log.Warn().Err(err).Msg("discovery failure")
		r.pub.Publish(Event{Name: EventDiscoveryError, Fields: map[string]any{"error": err.Error()}})
	}
	r.log.Info().Int("plugins", len(next.entries)).Int("errors", len(errs)).Strs("roots", r.roots).Msg("registry reloaded")
	r.pub.Publish(Event{Name: EventReloaded, Fields: map[string]any{"plugins": len(next.entries), "errors": len(errs)}})
	return nil
}

func (r *Registry) closePlugin(id string, p plugin.Plugin) {
	c, ok := p.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		r.log.Warn().Err(err).Str("plugin", id).Msg("close plugin")
	}
}

// SetSuspended turns dispatch off or on. Going from suspended to active
// reloads the registry exactly once; every other call only records the flag.
// If that reload fails the registry stays suspended.
func (r *Registry) SetSuspended(ctx context.Context, suspended bool) error {
	r.suspendMu.Lock()
	defer r.suspendMu.Unlock()

	r.mu.Lock()
	prev := r.suspended
	if !prev || suspended {
		r.suspended = suspended
	}
	r.mu.Unlock()

	switch {
	case !prev && suspended:
		r.log.Info().Msg("dispatch suspended")
		r.pub.Publish(Event{Name: EventSuspended})
	case prev && !suspended:
		if err := r.Reload(ctx); err != nil {
			r.log.Warn().Err(err).Msg("resume failed; dispatch stays suspended")
			return err
		}
		r.mu.Lock()
		r.suspended = false
		r.mu.Unlock()
		r.log.Info().Msg("dispatch resumed")
		r.pub.Publish(Event{Name: EventResumed})
	}
	return nil
}

// ApplySuspended is SetSuspended for untyped administrative input. Anything
// but a bool yields a *ConfigurationError and leaves the registry unchanged.
func (r *Registry) ApplySuspended(ctx context.Context, raw any) error {
	b, ok := raw.(bool)
	if !ok {
		return &ConfigurationError{Field: "suspended", Value: raw, Msg: "must be a boolean"}
	}
	return r.SetSuspended(ctx, b)
}

// SetEnabled flips the enabled flag of plugin id. Unknown identities are
// ignored; the return value reports whether id was known.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	e, ok := r.gen.index[id]
	changed := ok && e.enabled != enabled
	if ok {
		e.enabled = enabled
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug().Str("plugin", id).Msg("enable request for unknown plugin ignored")
		return false
	}
	if changed {
		name := EventDisabled
		if enabled {
			name = EventEnabled
		}
		r.pub.Publish(Event{Name: name, PluginID: id})
	}
	return true
}

// ListEntries returns the entries in discovery order.
func (r *Registry) ListEntries() []Entry {
	r.mu.RLock()
	entries := r.gen.entries
	enabled := make([]bool, len(entries))
	for i, e := range entries {
		enabled[i] = e.enabled
	}
	r.mu.RUnlock()

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.snapshot(enabled[i])
	}
	return out
}

// Suspended reports whether dispatch is globally off.
func (r *Registry) Suspended() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.suspended
}

// Enabled reports whether id is registered and enabled.
func (r *Registry) Enabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.gen.index[id]
	return ok && e.enabled
}

// Roots returns the configured discovery roots.
func (r *Registry) Roots() []string { return append([]string(nil), r.roots...) }

// SeenRoots returns the locations traversed by the last discovery pass.
func (r *Registry) SeenRoots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.seen...)
}

// DiscoveryErrors returns the per-unit failures of the last discovery pass.
func (r *Registry) DiscoveryErrors() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]error(nil), r.errs...)
}

// Close drops every entry, waiting for in-flight dispatches before closing
// the plugins. Subsequent reloads fail with ErrClosed.
func (r *Registry) Close() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	prev := r.gen
	r.gen = &generation{index: map[string]*entry{}}
	r.mu.Unlock()

	prev.wg.Wait()
	for _, e := range prev.entries {
		r.closePlugin(e.id, e.plugin)
	}
	return nil
}
