package discovery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"plugind/internal/plugin"
)

// CatalogScheme is the Mux scheme conventionally bound to a Catalog.
const CatalogScheme = "catalog"

type registration struct {
	unit    string
	factory plugin.Factory
}

// Catalog is a static registry of plugin factories grouped by dotted names.
// Discovering a group yields its factories in registration order and then
// recurses into its child groups in lexical order.
type Catalog struct {
	mu     sync.RWMutex
	groups map[string][]registration
}

func NewCatalog() *Catalog {
	return &Catalog{groups: make(map[string][]registration)}
}

var defaultCatalog = NewCatalog()

// Default returns the process-wide catalog populated by Register.
func Default() *Catalog { return defaultCatalog }

// Register adds factory to group in the default catalog. It is meant to be
// called from init functions and panics on invalid input.
func Register(group string, factory plugin.Factory) { defaultCatalog.Register(group, factory) }

// Register adds factory to group. It panics on an empty group or nil factory.
func (c *Catalog) Register(group string, factory plugin.Factory) {
	group = strings.Trim(group, ".")
	if group == "" {
		panic("discovery: Register with empty group")
	}
	if factory == nil {
		panic("discovery: Register with nil factory for group " + group)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	regs := c.groups[group]
	c.groups[group] = append(regs, registration{
		unit:    fmt.Sprintf("%s:%s#%d", CatalogScheme, group, len(regs)),
		factory: factory,
	})
}

// Groups lists the groups that have at least one factory, sorted.
func (c *Catalog) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

func (c *Catalog) Discover(ctx context.Context, roots []string, w *Walk) {
	for _, root := range roots {
		group := strings.Trim(root, ".")
		if !c.known(group) {
			w.Fail(CatalogScheme+":"+root, fmt.Errorf("unknown group %q", root))
			continue
		}
		c.walkGroup(ctx, group, w)
	}
}

func (c *Catalog) walkGroup(ctx context.Context, group string, w *Walk) {
	if ctx.Err() != nil {
		return
	}
	if !w.Visit(CatalogScheme + ":" + group) {
		return
	}
	c.mu.RLock()
	regs := slices.Clone(c.groups[group])
	children := c.childrenLocked(group)
	c.mu.RUnlock()

	for _, r := range regs {
		w.Construct(r.unit, r.factory)
	}
	for _, child := range children {
		c.walkGroup(ctx, child, w)
	}
}

// childrenLocked returns the direct sub-groups of group, including
// intermediate groups that only exist as prefixes of deeper registrations.
func (c *Catalog) childrenLocked(group string) []string {
	prefix := group + "."
	set := make(map[string]struct{})
	for g := range c.groups {
		rest, ok := strings.CutPrefix(g, prefix)
		if !ok || rest == "" {
			continue
		}
		head, _, _ := strings.Cut(rest, ".")
		set[prefix+head] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

func (c *Catalog) known(group string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.groups[group]; ok {
		return true
	}
	prefix := group + "."
	for g := range c.groups {
		if strings.HasPrefix(g, prefix) {
			return true
		}
	}
	return false
}
