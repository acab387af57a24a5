package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"plugind/internal/discovery"
	"plugind/internal/httpapi"
	"plugind/internal/registry"
)

// writePlugins creates files (relative name -> content) under a temp dir.
func writePlugins(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write plugin %s: %v", p, err)
		}
	}
	return dir
}

func newServerForDir(t *testing.T, dir string) (*httptest.Server, *registry.Registry, *registry.MemoryPublisher) {
	t.Helper()
	fs, err := discovery.NewFS(discovery.NewLuaLoader(""), discovery.NewManifestLoader("", nil))
	if err != nil {
		t.Fatalf("fs source: %v", err)
	}
	src := discovery.NewMux(discovery.FileScheme).Handle(discovery.FileScheme, fs)
	log := zerolog.New(io.Discard)
	pub := registry.NewMemoryPublisher()
	reg, err := registry.NewWithConfig(registry.Config{Source: src, Roots: []string{dir}, Logger: &log, Publisher: pub})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := reg.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(reg))
	t.Cleanup(func() {
		srv.Close()
		_ = reg.Close()
	})
	return srv, reg, pub
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return do(t, http.MethodGet, url, nil)
}

func httpJSON(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return do(t, method, url, b)
}

func do(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %T: %v\n%s", v, err, b)
	}
	return v
}
