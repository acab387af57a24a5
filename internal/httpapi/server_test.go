package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"plugind/pkg/types"
)

type mockService struct {
	plugins   []types.PluginInfo
	status    types.StatusResponse
	ready     bool
	suspended bool
	enabled   map[string]bool
	reloadErr error
	reloads   int
	lastReq   types.DispatchRequest
	results   map[string]types.DispatchResult
}

func (m *mockService) Plugins() []types.PluginInfo {
	return append([]types.PluginInfo(nil), m.plugins...)
}
func (m *mockService) Reload(ctx context.Context) error {
	m.reloads++
	return m.reloadErr
}
func (m *mockService) Suspended() bool { return m.suspended }
func (m *mockService) ApplySuspended(ctx context.Context, raw any) error {
	b, ok := raw.(bool)
	if !ok {
		return mockHTTPError{msg: "suspended must be a boolean", code: http.StatusBadRequest}
	}
	m.suspended = b
	return nil
}
func (m *mockService) SetEnabled(id string, enabled bool) bool {
	if _, ok := m.enabled[id]; !ok {
		return false
	}
	m.enabled[id] = enabled
	return true
}
func (m *mockService) Enabled(id string) bool { return m.enabled[id] }
func (m *mockService) DispatchRequest(ctx context.Context, req types.DispatchRequest) types.DispatchResponse {
	m.lastReq = req
	return types.DispatchResponse{EventType: req.EventType, Field: req.Field, Suspended: m.suspended, Results: m.results}
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func doJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPluginsHandler(t *testing.T) {
	svc := &mockService{plugins: []types.PluginInfo{{ID: "a", Enabled: true}, {ID: "b"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plugins", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.PluginsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Plugins) != 2 || body.Plugins[0].ID != "a" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Plugins: 3, Reloads: 2}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Plugins != 3 || body.Reloads != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReload(t *testing.T) {
	svc := &mockService{}
	w := doJSON(NewMux(svc), http.MethodPost, "/reload", "")
	if w.Code != http.StatusOK || svc.reloads != 1 {
		t.Fatalf("status=%d reloads=%d", w.Code, svc.reloads)
	}
}

func TestReloadErrorMapping(t *testing.T) {
	svc := &mockService{reloadErr: mockHTTPError{msg: "closed", code: http.StatusConflict}}
	if w := doJSON(NewMux(svc), http.MethodPost, "/reload", ""); w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	svc.reloadErr = io.EOF
	if w := doJSON(NewMux(svc), http.MethodPost, "/reload", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("generic error status=%d", w.Code)
	}
}

func TestSuspend(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := doJSON(h, http.MethodPut, "/suspend", `{"suspended":true}`)
	if w.Code != http.StatusOK || !svc.suspended {
		t.Fatalf("status=%d suspended=%v", w.Code, svc.suspended)
	}
	var body types.PluginsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || !body.Suspended {
		t.Fatalf("body=%s err=%v", w.Body.String(), err)
	}
}

func TestSuspendRejectsNonBool(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	for _, body := range []string{`{"suspended":"yes"}`, `{"suspended":1}`, `{}`} {
		w := doJSON(h, http.MethodPut, "/suspend", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, w.Code)
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != http.StatusBadRequest {
			t.Fatalf("%s: error body=%s", body, w.Body.String())
		}
	}
	if svc.suspended {
		t.Fatalf("state changed by invalid input")
	}
}

func TestSetEnabled(t *testing.T) {
	svc := &mockService{enabled: map[string]bool{"a": true}}
	h := NewMux(svc)

	w := doJSON(h, http.MethodPut, "/plugins/a/enabled", `{"enabled":false}`)
	var body types.EnableResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || body.Enabled || !body.Known || body.ID != "a" {
		t.Fatalf("status=%d body=%+v", w.Code, body)
	}

	w = doJSON(h, http.MethodPut, "/plugins/ghost/enabled", `{"enabled":true}`)
	body = types.EnableResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || body.Known {
		t.Fatalf("unknown id should be a reported no-op: status=%d body=%+v", w.Code, body)
	}

	if w := doJSON(h, http.MethodPut, "/plugins/a/enabled", `{"enabled":"true"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("non-bool status=%d", w.Code)
	}
}

func TestDispatch(t *testing.T) {
	svc := &mockService{results: map[string]types.DispatchResult{"a": {Outcome: "value", Value: "ok"}}}
	h := NewMux(svc)
	w := doJSON(h, http.MethodPost, "/dispatch", `{"event_type":"New_Project","field":"reference","payload":{"reference":"P-1"},"extra":["x"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastReq.EventType != "New_Project" || svc.lastReq.Payload["reference"] != "P-1" || len(svc.lastReq.Extra) != 1 {
		t.Fatalf("request not forwarded: %+v", svc.lastReq)
	}
	var body types.DispatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Results["a"].Value != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDispatchValidation(t *testing.T) {
	h := NewMux(&mockService{})
	if w := doJSON(h, http.MethodPost, "/dispatch", `{"event_type":"E"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing field: status=%d", w.Code)
	}
	if w := doJSON(h, http.MethodPost, "/dispatch", "not-json"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewBufferString(`{"event_type":"E","field":"f"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("media type: status=%d", w.Code)
	}
}

func TestContentTypeCaseInsensitive(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewBufferString(`{"event_type":"E","field":"f"}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", rec.Code)
	}
}

func TestDispatchBodyTooLarge(t *testing.T) {
	h := NewMux(&mockService{})
	big := `{"event_type":"E","field":"f","payload":{"blob":"` + strings.Repeat("a", 1<<20) + `"}}`
	if w := doJSON(h, http.MethodPost, "/dispatch", big); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestDispatchLogsWithZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	h := NewMux(&mockService{})
	if w := doJSON(h, http.MethodPost, "/dispatch?log=debug", `{"event_type":"E","field":"f"}`); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "dispatch start") || !strings.Contains(out, `"status":200`) {
		t.Fatalf("missing log lines: %q", out)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "PUT", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/plugins", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), mockHTTPError{msg: "bad", code: http.StatusBadRequest})
	if got := statusFor(wrapped); got != http.StatusBadRequest {
		t.Fatalf("wrapped HTTPError: %d", got)
	}
	if got := statusFor(io.EOF); got != http.StatusInternalServerError {
		t.Fatalf("plain error: %d", got)
	}
	if got := statusFor(fmt.Errorf("reload: %w", context.Canceled)); got != http.StatusServiceUnavailable {
		t.Fatalf("interrupted reload: %d", got)
	}
}
