package registry

import (
	"context"

	"plugind/internal/plugin"
	"plugind/pkg/types"
)

// Info converts an entry snapshot to its wire form.
func Info(e Entry) types.PluginInfo {
	filters := map[string][]string(e.Filters)
	if filters == nil {
		filters = map[string][]string{}
	}
	return types.PluginInfo{
		ID:          e.ID,
		Description: e.Description,
		Source:      e.Source,
		Enabled:     e.Enabled,
		Filters:     filters,
	}
}

// Plugins lists the entries in wire form.
func (r *Registry) Plugins() []types.PluginInfo {
	entries := r.ListEntries()
	out := make([]types.PluginInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, Info(e))
	}
	return out
}

// Ready reports whether at least one discovery pass completed and the
// registry is still open.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reloads > 0 && !r.closed
}

// DispatchRequest runs Dispatch for a decoded API request.
func (r *Registry) DispatchRequest(ctx context.Context, req types.DispatchRequest) types.DispatchResponse {
	res, suspended := r.dispatch(ctx, req.EventType, req.Field, plugin.Payload(req.Payload), req.Extra)
	resp := types.DispatchResponse{
		EventType: req.EventType,
		Field:     req.Field,
		Suspended: suspended,
		Results:   make(map[string]types.DispatchResult, len(res)),
	}
	for id, v := range res {
		resp.Results[id] = WireResult(v)
	}
	return resp
}

// WireResult converts a dispatch Result to its wire form.
func WireResult(v Result) types.DispatchResult {
	out := types.DispatchResult{Outcome: string(v.Outcome), Value: v.Value}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	return out
}
