package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"plugind/internal/discovery"
	"plugind/internal/plugin"
)

// fakePlugin is an in-memory plugin whose behavior is driven by perform.
type fakePlugin struct {
	plugin.Base
	perform func(ctx context.Context, payload plugin.Payload, extra []any) (any, error)
	closed  *atomic.Int32
}

func (p *fakePlugin) Perform(ctx context.Context, payload plugin.Payload, extra ...any) (any, error) {
	if p.perform == nil {
		return p.Name(), nil
	}
	return p.perform(ctx, payload, extra)
}

func (p *fakePlugin) Close() error {
	if p.closed != nil {
		p.closed.Add(1)
	}
	return nil
}

// fixture describes one catalog registration.
type fixture struct {
	name    string
	filters plugin.Filters
	perform func(ctx context.Context, payload plugin.Payload, extra []any) (any, error)
}

// harness counts constructions and closes across reloads.
type harness struct {
	catalog *discovery.Catalog
	built   atomic.Int32
	closed  atomic.Int32
}

func newHarness(group string, fixtures ...fixture) *harness {
	h := &harness{catalog: discovery.NewCatalog()}
	for _, f := range fixtures {
		f := f
		h.catalog.Register(group, func(host plugin.Host) plugin.Plugin {
			h.built.Add(1)
			return &fakePlugin{
				Base:    plugin.NewBase(host, f.name, "", f.filters),
				perform: f.perform,
				closed:  &h.closed,
			}
		})
	}
	return h
}

func newTestRegistry(t *testing.T, h *harness, mutate func(*Config)) (*Registry, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	cfg := Config{Source: h.catalog, Roots: []string{"plugins"}, Publisher: pub}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, pub
}

func returns(v any) func(context.Context, plugin.Payload, []any) (any, error) {
	return func(context.Context, plugin.Payload, []any) (any, error) { return v, nil }
}

func fails(msg string) func(context.Context, plugin.Payload, []any) (any, error) {
	return func(context.Context, plugin.Payload, []any) (any, error) { return nil, errors.New(msg) }
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
