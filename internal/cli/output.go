package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"plugind/pkg/types"
)

func printPlugins(w io.Writer, plugins []types.PluginInfo, errs []error) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENABLED\tFILTERS\tSOURCE")
	for _, p := range plugins {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", p.ID, p.Enabled, formatFilters(p.Filters), p.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, err := range errs {
		fmt.Fprintf(w, "discovery error: %v\n", err)
	}
	return nil
}

// formatFilters renders filters as "Event[a,b] Other[*]" in event order.
func formatFilters(f map[string][]string) string {
	if len(f) == 0 {
		return "-"
	}
	events := make([]string, 0, len(f))
	for e := range f {
		events = append(events, e)
	}
	sort.Strings(events)
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = fmt.Sprintf("%s[%s]", e, strings.Join(f[e], ","))
	}
	return strings.Join(parts, " ")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
