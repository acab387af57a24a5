package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "plugind/internal/builtin/project"
	"plugind/internal/config"
	"plugind/internal/discovery"
	"plugind/internal/httpapi"
	"plugind/internal/plugin"
	"plugind/internal/registry"
	"plugind/pkg/types"
)

const helloLua = `name = "hello"
description = "greets"
filters = { E = { "f" } }

function perform_operation(event)
  return "hi " .. (event.name or "?")
end
`

func pluginDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	if err := os.WriteFile(filepath.Join(d, "hello.lua"), []byte(helloLua), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return d
}

// withServeStub replaces fnServe for the duration of a test.
func withServeStub(t *testing.T, stub func(context.Context, config.Config) error) {
	t.Helper()
	old := fnServe
	fnServe = stub
	t.Cleanup(func() { fnServe = old })
}

func TestMainWithArgs_NoArgs_ShowsUsageAndExit2(t *testing.T) {
	var out bytes.Buffer
	if code := MainWithArgs(nil, &out); code != 2 {
		t.Fatalf("expected exit code 2 for no args, got %d", code)
	}
	if !strings.Contains(out.String(), "plugind") {
		t.Fatalf("expected usage, got %q", out.String())
	}
}

func TestMainWithArgs_UnknownCommand_Exit1(t *testing.T) {
	var out bytes.Buffer
	if code := MainWithArgs([]string{"wat"}, &out); code != 1 {
		t.Fatalf("expected exit code 1 for unknown command, got %d", code)
	}
}

func TestServe_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PLUGIND_ADDR", ":1111")
	t.Setenv("PLUGIND_CONCURRENCY", "3")
	var got config.Config
	withServeStub(t, func(_ context.Context, cfg config.Config) error {
		got = cfg
		return nil
	})
	var out bytes.Buffer
	code := MainWithArgs([]string{"serve", "--addr", ":2222", "--root", "/a,/b", "--log-format", "console"}, &out)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, out.String())
	}
	if got.Addr != ":2222" || got.Concurrency != 3 || got.LogFormat != "console" {
		t.Fatalf("unexpected cfg: %+v", got)
	}
	if len(got.Roots) != 2 || got.Roots[1] != "/b" {
		t.Fatalf("roots: %v", got.Roots)
	}
}

func TestServe_ConfigFile(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "plugind.toml")
	if err := os.WriteFile(p, []byte("roots=[\"catalog:plugins\"]\nsuspended=true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got config.Config
	withServeStub(t, func(_ context.Context, cfg config.Config) error {
		got = cfg
		return nil
	})
	var out bytes.Buffer
	if code := MainWithArgs([]string{"serve", "-c", p}, &out); code != 0 {
		t.Fatalf("exit %d: %s", code, out.String())
	}
	if !got.Suspended || got.Roots[0] != "catalog:plugins" || got.Addr != config.DefaultAddr {
		t.Fatalf("unexpected cfg: %+v", got)
	}
}

func TestServe_MissingRootsFails(t *testing.T) {
	withServeStub(t, func(context.Context, config.Config) error {
		t.Fatalf("serve must not run without roots")
		return nil
	})
	var out bytes.Buffer
	if code := MainWithArgs([]string{"serve"}, &out); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "root") {
		t.Fatalf("expected roots error, got %q", out.String())
	}
}

func TestList_Local(t *testing.T) {
	var out bytes.Buffer
	if code := MainWithArgs([]string{"list", "--root", pluginDir(t)}, &out); code != 0 {
		t.Fatalf("exit %d: %s", code, out.String())
	}
	s := out.String()
	if !strings.Contains(s, "hello") || !strings.Contains(s, "E[f]") || !strings.Contains(s, "true") {
		t.Fatalf("unexpected listing:\n%s", s)
	}
}

func TestDispatch_Local(t *testing.T) {
	var out bytes.Buffer
	code := MainWithArgs([]string{"dispatch", "E", "f", "--root", pluginDir(t), "--payload", `{"name":"x"}`}, &out)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, out.String())
	}
	var resp types.DispatchResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v\n%s", err, out.String())
	}
	if r := resp.Results["hello"]; r.Outcome != "value" || r.Value != "hi x" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestDispatch_BadPayload(t *testing.T) {
	var out bytes.Buffer
	code := MainWithArgs([]string{"dispatch", "E", "f", "--root", pluginDir(t), "--payload", "[1,2]"}, &out)
	if code != 1 || !strings.Contains(out.String(), "--payload") {
		t.Fatalf("exit %d: %s", code, out.String())
	}
}

type echo struct{ plugin.Base }

func (e *echo) Perform(_ context.Context, p plugin.Payload, _ ...any) (any, error) {
	return p["reference"], nil
}

func TestRemoteCommands(t *testing.T) {
	cat := discovery.NewCatalog()
	cat.Register("plugins", func(h plugin.Host) plugin.Plugin {
		return &echo{plugin.NewBase(h, "echo", "", plugin.Filters{"New_Project": {"reference"}})}
	})
	reg, err := registry.New(context.Background(), cat, "plugins")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	defer reg.Close()
	srv := httptest.NewServer(httpapi.NewMux(reg))
	defer srv.Close()

	var out bytes.Buffer
	if code := MainWithArgs([]string{"list", "--server", srv.URL}, &out); code != 0 {
		t.Fatalf("list exit %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "New_Project[reference]") {
		t.Fatalf("remote listing:\n%s", out.String())
	}

	out.Reset()
	code := MainWithArgs([]string{"dispatch", "New_Project", "reference", "--server", srv.URL, "-p", `{"reference":"P-9"}`}, &out)
	if code != 0 {
		t.Fatalf("dispatch exit %d: %s", code, out.String())
	}
	var resp types.DispatchResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Results["echo"].Value != "P-9" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}

	out.Reset()
	code = MainWithArgs([]string{"dispatch", "New_Project", " ", "--server", srv.URL}, &out)
	if code != 1 || !strings.Contains(out.String(), "400") {
		t.Fatalf("expected API error, exit %d: %s", code, out.String())
	}
}

func TestFormatFilters(t *testing.T) {
	got := formatFilters(map[string][]string{"b": {"*"}, "a": {"x", "y"}})
	if got != "a[x,y] b[*]" {
		t.Fatalf("got %q", got)
	}
	if formatFilters(nil) != "-" {
		t.Fatalf("empty filters")
	}
}

func TestNewRegistryCatalogRoot(t *testing.T) {
	cfg := config.Config{Roots: []string{"catalog:plugins"}}.WithDefaults()
	reg, err := newRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newRegistry: %v", err)
	}
	defer reg.Close()
	if errs := reg.DiscoveryErrors(); len(errs) != 0 {
		t.Fatalf("discovery errors: %v", errs)
	}
	if !reg.Enabled("mk_project_directory") {
		t.Fatalf("built-in plugin missing: %+v", reg.ListEntries())
	}
}
