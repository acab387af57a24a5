package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"plugind/internal/plugin"
)

type target struct {
	e       *entry
	enabled bool
}

// Dispatch routes one event to every eligible plugin and returns what each
// produced, keyed by identity.
//
// A suspended registry returns an empty map without looking at any entry.
// Disabled entries report Disabled. Entries whose filters do not cover
// (eventType, field) are absent. A plugin that returns an error or panics is
// reported as Failure and is disabled before Dispatch returns, unless the
// error is the cancellation of ctx itself.
func (r *Registry) Dispatch(ctx context.Context, eventType, field string, payload plugin.Payload, extra ...any) Results {
	out, _ := r.dispatch(ctx, eventType, field, payload, extra)
	return out
}

// dispatch also reports whether the registry was suspended when the entry
// snapshot was taken.
func (r *Registry) dispatch(ctx context.Context, eventType, field string, payload plugin.Payload, extra []any) (Results, bool) {
	out := make(Results)

	r.mu.RLock()
	if r.suspended {
		r.mu.RUnlock()
		dispatchTotal.WithLabelValues("suspended").Inc()
		r.log.Debug().Str("event", eventType).Str("field", field).Msg("dispatch suspended")
		return out, true
	}
	gen := r.gen
	gen.wg.Add(1)
	targets := make([]target, len(gen.entries))
	for i, e := range gen.entries {
		targets[i] = target{e: e, enabled: e.enabled}
	}
	r.mu.RUnlock()
	defer gen.wg.Done()

	var eligible []*entry
	for _, t := range targets {
		if !t.enabled {
			out[t.e.id] = Disabled()
			continue
		}
		if !t.e.filters.Match(eventType, field) {
			continue
		}
		eligible = append(eligible, t.e)
	}

	results := make([]Result, len(eligible))
	if r.concurrency <= 1 || len(eligible) < 2 {
		for i, e := range eligible {
			results[i] = r.invoke(ctx, e, payload, extra)
		}
	} else {
		sem := make(chan struct{}, r.concurrency)
		var wg sync.WaitGroup
		for i, e := range eligible {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, e *entry) {
				defer func() { <-sem; wg.Done() }()
				results[i] = r.invoke(ctx, e, payload, extra)
			}(i, e)
		}
		wg.Wait()
	}
	for i, e := range eligible {
		out[e.id] = results[i]
	}

	dispatchTotal.WithLabelValues("dispatched").Inc()
	r.log.Debug().Str("event", eventType).Str("field", field).Int("eligible", len(eligible)).Int("results", len(out)).Msg("dispatched")
	return out, false
}

// invoke calls one plugin and applies auto-disable on failure.
func (r *Registry) invoke(ctx context.Context, e *entry, payload plugin.Payload, extra []any) Result {
	start := time.Now()
	v, err := plugin.Call(ctx, e.id, e.plugin, payload, extra...)
	invocationDuration.WithLabelValues(e.id).Observe(time.Since(start).Seconds())

	var res Result
	switch {
	case err == nil:
		res = Value(v)
	case errors.Is(err, plugin.ErrSkip):
		res = Skipped()
	default:
		res = Failure(err)
	}
	invocationsTotal.WithLabelValues(e.id, string(res.Outcome)).Inc()

	if res.Failed() {
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
			r.log.Debug().Err(err).Str("plugin", e.id).Msg("plugin interrupted by caller")
			return res
		}
		r.disableAfterFailure(e, err)
	}
	return res
}

func (r *Registry) disableAfterFailure(e *entry, err error) {
	r.mu.Lock()
	was := e.enabled
	e.enabled = false
	r.mu.Unlock()

	r.log.Warn().Err(err).Str("plugin", e.id).Msg("plugin failed")
	if !was {
		return
	}
	autoDisabledTotal.WithLabelValues(e.id).Inc()
	r.log.Warn().Str("plugin", e.id).Msg("plugin auto-disabled")
	r.pub.Publish(Event{Name: EventAutoDisabled, PluginID: e.id, Fields: map[string]any{"error": err.Error()}})
}
