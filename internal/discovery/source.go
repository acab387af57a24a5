// Package discovery locates plugin implementations and constructs them for a
// registry.
//
// A Source walks a list of roots and reports what it finds into a Walk, the
// state of a single discovery pass. The Walk remembers every location already
// traversed so overlapping roots or cyclic layouts (symlink loops) never cause
// unbounded recursion, and it collects per-unit failures so that one broken
// unit never aborts the pass.
//
// Sources shipped with the package:
//
//   - Catalog: static registration of plugin factories from init() functions,
//     grouped by dotted names ("plugins", "plugins.project").
//   - FS: recursive directory scan handing matching files to Loaders
//     (LuaLoader for *.lua scripts, ManifestLoader for webhook manifests).
//   - Mux: routes "scheme:location" roots to the source registered for the
//     scheme.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"plugind/internal/plugin"
)

// Source yields plugin instances reachable from roots.
type Source interface {
	Discover(ctx context.Context, roots []string, w *Walk)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, roots []string, w *Walk)

func (f SourceFunc) Discover(ctx context.Context, roots []string, w *Walk) { f(ctx, roots, w) }

// Unit is one discovered plugin.
type Unit struct {
	ID     string
	Source string
	Plugin plugin.Plugin
}

// DiscoveryError records a unit that could not be loaded.
type DiscoveryError struct {
	Unit string
	Err  error
}

func (e *DiscoveryError) Error() string { return fmt.Sprintf("discovery: %s: %v", e.Unit, e.Err) }

func (e *DiscoveryError) Unwrap() error { return e.Err }

// IsDiscoveryError reports whether err is a per-unit discovery failure.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return errors.As(err, &de)
}

// Walk is the state of one discovery pass. It is not safe for concurrent use.
type Walk struct {
	host  plugin.Host
	seen  map[string]struct{}
	order []string
	units []Unit
	errs  []error
}

// NewWalk starts a pass whose plugins are bound to host.
func NewWalk(host plugin.Host) *Walk {
	return &Walk{host: host, seen: make(map[string]struct{})}
}

// Host returns the registry the pass constructs plugins for.
func (w *Walk) Host() plugin.Host { return w.host }

// Visit marks location as traversed. It returns false when the location was
// already visited in this pass, in which case the caller must not descend.
func (w *Walk) Visit(location string) bool {
	if _, ok := w.seen[location]; ok {
		return false
	}
	w.seen[location] = struct{}{}
	w.order = append(w.order, location)
	return true
}

// Yield records a constructed plugin found in unit.
func (w *Walk) Yield(unit string, p plugin.Plugin) {
	if p == nil {
		w.Fail(unit, errors.New("no plugin constructed"))
		return
	}
	id, err := identity(p)
	if err != nil {
		w.Fail(unit, err)
		return
	}
	if id == "" {
		w.Fail(unit, errors.New("plugin has no identity"))
		return
	}
	w.units = append(w.units, Unit{ID: id, Source: unit, Plugin: p})
}

// Construct runs factory and yields its result; a panic or nil result is
// recorded as a failure of unit.
func (w *Walk) Construct(unit string, factory plugin.Factory) {
	var p plugin.Plugin
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("factory panic: %v", r)
			}
		}()
		p = factory(w.host)
		return nil
	}()
	if err != nil {
		w.Fail(unit, err)
		return
	}
	w.Yield(unit, p)
}

// Fail records that unit could not be loaded.
func (w *Walk) Fail(unit string, err error) {
	var de *DiscoveryError
	if errors.As(err, &de) {
		w.errs = append(w.errs, de)
		return
	}
	w.errs = append(w.errs, &DiscoveryError{Unit: unit, Err: err})
}

// Units returns discovered plugins in discovery order, duplicates included.
func (w *Walk) Units() []Unit { return append([]Unit(nil), w.units...) }

// Errors returns the per-unit failures of the pass.
func (w *Walk) Errors() []error { return append([]error(nil), w.errs...) }

// Seen returns the traversed locations in visiting order.
func (w *Walk) Seen() []string { return append([]string(nil), w.order...) }

// identity guards against typed nil plugins whose Name panics.
func identity(p plugin.Plugin) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin identity: %v", r)
		}
	}()
	return plugin.Identity(p), nil
}
