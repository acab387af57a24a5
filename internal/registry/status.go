package registry

import (
	"time"

	"plugind/pkg/types"
)

// Status builds a detailed status response for /status.
func (r *Registry) Status() types.StatusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		Suspended:      r.suspended,
		Roots:          append([]string(nil), r.roots...),
		SeenRoots:      append([]string(nil), r.seen...),
		Plugins:        len(r.gen.entries),
		Reloads:        r.reloads,
		UptimeSeconds:  int64(now.Sub(r.created).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if !r.lastReload.IsZero() {
		resp.LastReloadUnix = r.lastReload.Unix()
	}
	for _, e := range r.gen.entries {
		if e.enabled {
			resp.Enabled++
		} else {
			resp.Disabled++
		}
	}
	for _, err := range r.errs {
		resp.DiscoveryErrors = append(resp.DiscoveryErrors, err.Error())
	}
	return resp
}
