package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/observability"
)

const greeter = `
schema_version: 1
id: greeter
nodes:
  - id: start
    type: trigger.manual
  - id: hello
    type: constant.string
    defaults: {value: "Hello, "}
  - id: join
    type: string.concat
  - id: say
    type: action.log
edges:
  - {source: start, source_handle: out, target: say, target_handle: in, kind: execution}
  - {source: hello, source_handle: value, target: join, target_handle: a}
  - {source: start, source_handle: payload, target: join, target_handle: b}
  - {source: join, source_handle: result, target: say, target_handle: message}
`

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{Log: func(_, msg string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lines = append(r.lines, msg)
	}}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func setup(t *testing.T, opts ...Option) (http.Handler, *recorder, *StreamManager) {
	t.Helper()
	rec := &recorder{}
	streams := NewStreamManager(slogNop())
	eng, err := lattice.New(
		lattice.WithListener(rec.hooks()),
		lattice.WithScriptListener(streams.Listener),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	_, err = eng.LoadDocument(context.Background(), []byte(greeter))
	require.NoError(t, err)

	handler, err := NewHandler(eng, append([]Option{WithStreams(streams)}, opts...)...)
	require.NoError(t, err)
	return handler, rec, streams
}

func do(h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestFireTrigger(t *testing.T) {
	h, rec, _ := setup(t)

	w := do(h, http.MethodPost, "/scripts/greeter/triggers/start", "application/json", `{"payload": "world"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp FireResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, FireResponse{Script: "greeter", Trigger: "start", Status: "completed"}, resp)
	assert.Equal(t, []string{"Hello, world"}, rec.snapshot())
}

func TestFireTrigger_EmptyBody(t *testing.T) {
	h, _, _ := setup(t)
	w := do(h, http.MethodPost, "/scripts/greeter/triggers/start", "", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestFireTrigger_Rejections(t *testing.T) {
	h, rec, _ := setup(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"array body", "/scripts/greeter/triggers/start", `["world"]`, http.StatusBadRequest},
		{"malformed body", "/scripts/greeter/triggers/start", `{"payload":`, http.StatusBadRequest},
		{"unknown script", "/scripts/nope/triggers/start", `{}`, http.StatusNotFound},
		{"unknown trigger", "/scripts/greeter/triggers/nope", `{}`, http.StatusNotFound},
		{"oversized payload", "/scripts/greeter/triggers/start", `{"payload":"` + strings.Repeat("x", 5000) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.path, "application/json", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
	assert.Empty(t, rec.snapshot())
}

func TestInspection(t *testing.T) {
	h, _, _ := setup(t)

	w := do(h, http.MethodGet, "/scripts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scripts":["greeter"]}`, w.Body.String())

	w = do(h, http.MethodGet, "/scripts/greeter", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var script ScriptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &script))
	assert.Equal(t, []string{"start"}, script.Triggers)
	assert.Empty(t, script.Folded, "the constant feeds a node that waits on the trigger")
	assert.Len(t, script.Nodes, 4)

	w = do(h, http.MethodGet, "/scripts/greeter/graph", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")

	w = do(h, http.MethodGet, "/nodes", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"math.add"`)

	w = do(h, http.MethodGet, "/info", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"api_version":"0.1.0"`)

	w = do(h, http.MethodGet, "/scripts/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateGraph(t *testing.T) {
	h, _, _ := setup(t)

	w := do(h, http.MethodPost, "/validate", "text/plain", greeter)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = do(h, http.MethodPost, "/validate", "application/json",
		`{"schema_version":1,"id":"bad","nodes":[{"id":"x","type":"no.such"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"valid":false`)
	assert.Contains(t, w.Body.String(), "INVALID_NODE_TYPE")

	w = do(h, http.MethodPost, "/validate", "application/json", `{"id":"missing-fields"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	h, _, _ := setup(t, WithMetrics(reg))
	w := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/openapi.yaml", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fireTrigger")
}

func TestSubscribeScriptEvents(t *testing.T) {
	h, _, streams := setup(t)
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/scripts/greeter/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The handler subscribes before it writes the ping.
	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "connected")

	streams.Listener("greeter").OnLog("info", "streamed")

	var got strings.Builder
	for !strings.Contains(got.String(), "streamed") {
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
	assert.Contains(t, got.String(), `"type":"log"`)
}

func slogNop() *slog.Logger { return logging.NewNop() }
