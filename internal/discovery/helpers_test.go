package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"plugind/internal/plugin"
)

type fakeHost struct{ suspended bool }

func (h fakeHost) Suspended() bool    { return h.suspended }
func (h fakeHost) Enabled(string) bool { return true }

type staticPlugin struct {
	plugin.Base
	result any
}

func (p *staticPlugin) Perform(context.Context, plugin.Payload, ...any) (any, error) {
	return p.result, nil
}

func newStatic(name string, filters plugin.Filters) plugin.Factory {
	return func(h plugin.Host) plugin.Plugin {
		return &staticPlugin{Base: plugin.NewBase(h, name, "", filters), result: name}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func unitIDs(w *Walk) []string {
	var ids []string
	for _, u := range w.Units() {
		ids = append(ids, u.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
