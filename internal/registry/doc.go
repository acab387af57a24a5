// Package registry owns the set of discovered plugins and routes events to
// them. It is structured into small files by concern:
//
//   - registry.go: Registry type, reload, suspend and enable/disable lifecycle.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - entry.go: Entry snapshots and dispatch Result values.
//   - dispatch.go: filter matching, invocation, failure isolation, auto-disable.
//   - errors.go: ConfigurationError and helpers.
//   - events.go: lifecycle events and publishers.
//   - metrics.go: Prometheus collectors.
//   - status.go: Status reporting for the HTTP layer.
//   - wire.go: conversions to the pkg/types DTOs served by the HTTP API.
//
// Dispatch takes a snapshot of the entries and invokes plugins without
// holding the registry lock, so plugins may read the registry through their
// plugin.Host. A reload waits for in-flight dispatches on the previous entry
// set before closing the instances it replaced; plugins must therefore never
// trigger a reload from Perform.
package registry
