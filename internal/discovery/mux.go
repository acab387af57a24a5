package discovery

import (
	"context"
	"fmt"
	"strings"
)

// Mux routes each root to the source registered for its scheme prefix
// ("catalog:plugins", "file:/srv/plugins"). Roots without a registered scheme
// are routed to the default scheme.
type Mux struct {
	sources map[string]Source
	def     string
}

// NewMux returns a Mux whose unprefixed roots go to the def scheme.
func NewMux(def string) *Mux {
	return &Mux{sources: make(map[string]Source), def: def}
}

// Handle binds scheme to src.
func (m *Mux) Handle(scheme string, src Source) *Mux {
	m.sources[scheme] = src
	return m
}

// Split returns the scheme and location of root.
func (m *Mux) Split(root string) (string, string) {
	if scheme, rest, ok := strings.Cut(root, ":"); ok {
		if _, known := m.sources[scheme]; known {
			return scheme, rest
		}
	}
	return m.def, root
}

// Discover handles roots one at a time so discovery order follows root order
// across schemes.
func (m *Mux) Discover(ctx context.Context, roots []string, w *Walk) {
	for _, root := range roots {
		if ctx.Err() != nil {
			return
		}
		scheme, loc := m.Split(root)
		src, ok := m.sources[scheme]
		if !ok {
			w.Fail(root, fmt.Errorf("no discovery source for scheme %q", scheme))
			continue
		}
		src.Discover(ctx, []string{loc}, w)
	}
}
