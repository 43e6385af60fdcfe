package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/internal/bootstrap"
	"cybersentinel/internal/demo"
	"cybersentinel/internal/metrics"
	"cybersentinel/internal/view"
	"cybersentinel/internal/workflow"
	"cybersentinel/pkg/models"
)

type fixture struct {
	srv  *httptest.Server
	orch *workflow.Orchestrator
	hub  *Hub
}

func newFixture(t *testing.T, boot bool) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	hub := NewHub(nil)
	sink := view.NewEventSink(hub)
	orch := workflow.New(
		demo.NewEngine(demo.NewSeededRand(11)),
		bootstrap.NewChain(bootstrap.Fallback()),
		view.NewRenderer(sink),
		workflow.WithDelays(workflow.Delays{}),
		workflow.WithStatus(sink),
		workflow.WithMetrics(metrics.New(reg)),
	)
	if boot {
		_, err := orch.Bootstrap(context.Background())
		require.NoError(t, err)
	}
	srv := httptest.NewServer(NewServer(orch, hub, reg).Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &fixture{srv: srv, orch: orch, hub: hub}
}

func (f *fixture) do(t *testing.T, method, path string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestDatasetBeforeBootstrap(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.do(t, http.MethodGet, "/api/dataset")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), "no dataset loaded")

	code, _ = f.do(t, http.MethodPost, "/api/actions/fetch-intel")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestActionsMutateDataset(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.do(t, http.MethodPost, "/api/actions/runCorrelation")
	require.Equal(t, http.StatusOK, code, string(body))
	var res workflow.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, workflow.RunCorrelation, res.Action)
	assert.True(t, strings.HasPrefix(res.Message, "Generated alert: "))
	require.NotNil(t, res.Alert)

	code, body = f.do(t, http.MethodGet, "/api/dataset")
	require.Equal(t, http.StatusOK, code)
	var d models.Dataset
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, 13, d.KPIs.Alerts)

	code, body = f.do(t, http.MethodGet, "/api/view")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"id":"alerts-table"`)
	assert.Contains(t, string(body), `"value":"13"`)

	code, _ = f.do(t, http.MethodPost, "/api/reset")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12, f.orch.Current().KPIs.Alerts)

	code, _ = f.do(t, http.MethodPost, "/api/actions/format-disk")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodPost, "/api/actions/fetch-intel")

	code, body := f.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `cybersentinel_workflow_runs_total{action="fetch-intel",outcome="success"} 1`)
	assert.Contains(t, string(body), `cybersentinel_kpi{kpi="alerts"} 12`)
}

func TestStatusForErrors(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(workflow.ErrBusy))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(workflow.ErrNoDataset))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}

func readEvent(t *testing.T, conn *websocket.Conn) view.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e view.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestEventsMatchesHubReplay(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.do(t, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, code)
	var events []view.Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 13)
	assert.Equal(t, view.EventTriggers, events[0].Type)
	assert.False(t, events[0].Disabled)
	assert.Equal(t, view.EventStatus, events[1].Type)
	assert.Equal(t, "Dashboard ready. Explore the workflow controls →", events[1].Message)
	assert.Len(t, f.hub.Snapshot(), 13)
}

func TestWebsocketReplaysAndTriggers(t *testing.T) {
	f := newFixture(t, true)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	replay := map[string]view.Event{}
	var status view.Event
	for i := 0; i < 13; i++ {
		e := readEvent(t, conn)
		switch e.Type {
		case view.EventStatus:
			status = e
		case view.EventTriggers:
		default:
			replay[e.Target] = e
		}
	}
	assert.Equal(t, "Dashboard ready. Explore the workflow controls →", status.Message)
	assert.Len(t, replay, 11)
	assert.Equal(t, view.EventChart, replay[view.SSHTrendChartID].Type)
	assert.Equal(t, "12", replay[view.TotalAlertsID].Text.Value)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "fetchIntel"}))
	for {
		e := readEvent(t, conn)
		if e.Type == view.EventStatus && strings.HasPrefix(e.Message, "Fetched threat intel: ") {
			break
		}
	}
	assert.Eventually(t, func() bool { return !f.orch.Busy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.hub.Clients())
}
