package plugin

import "slices"

// Wildcard matches any field name of an event type.
const Wildcard = "*"

// Filters maps an event type to the set of field names a plugin observes.
// Matching is exact-string on both sides; Wildcard is the only pattern and
// applies to field names only.
type Filters map[string][]string

// Empty reports whether the plugin declared no interest at all.
func (f Filters) Empty() bool { return len(f) == 0 }

// Match reports whether an event (eventType, field) is routed to the plugin.
func (f Filters) Match(eventType, field string) bool {
	candidates, ok := f[eventType]
	if !ok || len(candidates) == 0 {
		return false
	}
	return slices.Contains(candidates, field) || slices.Contains(candidates, Wildcard)
}

// EventTypes returns the declared event types in sorted order.
func (f Filters) EventTypes() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy so callers cannot mutate a plugin's filters.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}
