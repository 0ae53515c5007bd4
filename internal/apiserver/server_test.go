package apiserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/mcp"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/session"
	"github.com/moolen/medidesk/internal/simulator"
)

type classifierFunc func(ctx context.Context, credential, query string) delegation.Result

func (f classifierFunc) Classify(ctx context.Context, credential, query string) delegation.Result {
	return f(ctx, credential, query)
}

type testEnv struct {
	server *httptest.Server
	store  *Store
	reg    *prometheus.Registry
}

func newEnv(t *testing.T, classifier delegation.Classifier) *testEnv {
	t.Helper()
	if classifier == nil {
		classifier = delegation.NewClient(delegation.Options{
			Connect: delegation.ScenarioConnector(delegation.DefaultScenario()),
		})
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	factory := &session.Factory{Classifier: classifier, Metrics: m, Backend: "scenario"}
	factory.SetResponseDelay(time.Millisecond)
	store, err := NewStore(factory, 8, m)
	require.NoError(t, err)

	mcpServer, err := mcp.NewServer(mcp.ServerOptions{Classifier: classifier, Credential: "k", Version: "test"})
	require.NoError(t, err)

	s, err := New(Options{Store: store, Gatherer: reg, MCPServer: mcpServer.MCPServer()})
	require.NoError(t, err)
	s.MarkReady(true)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return &testEnv{server: ts, store: store, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out["id"])
	return out["id"]
}

func (e *testEnv) unlock(t *testing.T, id string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/sessions/"+id+"/credential", `{"secret":"key"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))
}

func decodeSnapshot(t *testing.T, body []byte) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	return snap
}

func TestHealthAndReady(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ready":true,"sessions":0}`, string(body))

	resp, _ = env.do(t, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestListAgents(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/v1/agents", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Agents []agents.Definition `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Agents, 5)
}

func TestSessionLifecycle(t *testing.T) {
	env := newEnv(t, nil)
	id := env.createSession(t)

	resp, body := env.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, body)
	assert.Equal(t, id, snap.ID)
	assert.False(t, snap.Ready)

	resp, _ = env.do(t, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetCredential(t *testing.T) {
	env := newEnv(t, nil)
	id := env.createSession(t)

	resp, _ := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/credential", `{"secret":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/credential", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.unlock(t, id)
	_, body := env.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	snap := decodeSnapshot(t, body)
	assert.True(t, snap.Ready)
	require.Len(t, snap.Logs, 2)
	assert.Equal(t, "System initialized. Security protocols active.", snap.Logs[0].Message)
}

func TestSubmitQuery_Wait(t *testing.T) {
	env := newEnv(t, nil)
	id := env.createSession(t)
	env.unlock(t, id)

	resp, body := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries?wait=true", `{"query":"Cek riwayat lab pasien"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	snap := decodeSnapshot(t, body)
	assert.False(t, snap.Processing)
	assert.Equal(t, agents.None, snap.ActiveAgent)
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, session.RoleAgent, snap.Transcript[1].Role)
	assert.Equal(t, agents.MedicalRecords, snap.Transcript[1].Agent)
	assert.Equal(t, simulator.Simulate(agents.MedicalRecords, ""), snap.Transcript[1].Content)
	require.NotNil(t, snap.Transcript[1].Metadata)
	assert.True(t, snap.Transcript[1].Metadata.Secure)
}

func TestSubmitQuery_Accepted(t *testing.T) {
	release := make(chan struct{})
	classifier := classifierFunc(func(ctx context.Context, _, _ string) delegation.Result {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return delegation.Delegated(delegation.FnBilling, nil)
	})
	env := newEnv(t, classifier)
	defer close(release)
	id := env.createSession(t)
	env.unlock(t, id)

	resp, body := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries", `{"query":"Berapa tagihan terakhir saya?"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	snap := decodeSnapshot(t, body)
	assert.True(t, snap.Processing)
	assert.Equal(t, agents.Coordinator, snap.ActiveAgent)
	assert.Equal(t, session.PhaseAwaitingDelegation, snap.Phase)

	resp, _ = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries", `{"query":"lagi"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSubmitQuery_Rejections(t *testing.T) {
	env := newEnv(t, nil)
	id := env.createSession(t)

	resp, _ := env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries", `{"query":"tagihan"}`)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	env.unlock(t, id)
	resp, _ = env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/v1/sessions/missing/queries", `{"query":"tagihan"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/v1/sessions/"+id+"/queries", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	id := env.createSession(t)
	env.do(t, http.MethodPost, "/v1/sessions/"+id+"/queries", `{"query":"tagihan"}`)

	resp, body := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `medidesk_rejections_total{reason="locked"} 1`)
	assert.Contains(t, string(body), "medidesk_sessions_active 1")
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t, nil)

	resp, _ := env.do(t, http.MethodOptions, "/v1/sessions", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMCPEndpointMounted(t *testing.T) {
	env := newEnv(t, nil)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`
	req, err := http.NewRequest(http.MethodPost, env.server.URL+MCPPath, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `"name":"medidesk"`)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestServer_StartStop(t *testing.T) {
	env := newEnv(t, nil)
	s, err := New(Options{Store: env.store})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, "apiserver", s.Name())
}
