package registry

import (
	"fmt"

	"plugind/internal/plugin"
)

// Entry is a read-only snapshot of one registered plugin. The Plugin instance
// stays owned by the registry; do not retain it past the snapshot's use.
type Entry struct {
	ID          string
	Source      string
	Description string
	Filters     plugin.Filters
	Enabled     bool
	Plugin      plugin.Plugin
}

// entry is the registry-owned record behind an Entry.
type entry struct {
	id      string
	source  string
	plugin  plugin.Plugin
	filters plugin.Filters
	enabled bool // guarded by Registry.mu
}

// snapshot must be called without holding Registry.mu: Description may call
// back into the registry through plugin.Host.
func (e *entry) snapshot(enabled bool) Entry {
	return Entry{
		ID:          e.id,
		Source:      e.source,
		Description: e.plugin.Description(),
		Filters:     e.filters.Clone(),
		Enabled:     enabled,
		Plugin:      e.plugin,
	}
}

// Outcome classifies a per-plugin dispatch result.
type Outcome string

const (
	OutcomeValue    Outcome = "value"
	OutcomeFailure  Outcome = "failure"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDisabled Outcome = "disabled"
)

// Result is what one plugin produced for one dispatch.
type Result struct {
	Outcome Outcome
	Value   any
	Err     error
}

func Value(v any) Result { return Result{Outcome: OutcomeValue, Value: v} }

func Failure(err error) Result { return Result{Outcome: OutcomeFailure, Err: err} }

func Skipped() Result { return Result{Outcome: OutcomeSkipped} }

func Disabled() Result { return Result{Outcome: OutcomeDisabled} }

func (r Result) Failed() bool { return r.Outcome == OutcomeFailure }

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeValue:
		return fmt.Sprintf("value(%v)", r.Value)
	case OutcomeFailure:
		return fmt.Sprintf("failure(%v)", r.Err)
	}
	return string(r.Outcome)
}

// Results maps plugin identity to its result. Plugins that were not eligible
// for the event are absent.
type Results map[string]Result
