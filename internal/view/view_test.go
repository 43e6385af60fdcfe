package view

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/internal/logger"
	"cybersentinel/pkg/models"
)

func sampleDataset() *models.Dataset {
	return &models.Dataset{
		KPIs: models.KPIs{IntelCount: 128, SSHEvents: 240, ApacheEvents: 182, Alerts: 12},
		SSHTopIPs: []models.IPCount{
			{IP: "203.0.113.24", Count: 32},
			{IP: "198.51.100.42", Count: 21},
		},
		SSHFailuresOverTime: []models.TimeBucket{
			{Time: "2025-11-13T20:00:00Z", Count: 6},
			{Time: "not-a-time", Count: 13},
		},
		ApacheStatusCounts: []models.StatusCount{{Status: "200", Count: 122}, {Status: "401", Count: 28}},
		AlertSeverityCounts: []models.SeverityCount{
			{Severity: "high", Count: 4},
			{Severity: "low", Count: 2},
		},
		IntelTable: []models.IntelRecord{
			{Indicator: models.Str("203.0.113.24"), Type: models.Str("ipv4"), Source: models.Str("AbuseIPDB"), Confidence: models.Int(90), LastSeen: models.Str("2025-11-14T02:00:00Z")},
			{Indicator: models.Str("malicious-domain.example"), FirstSeen: models.Str("2025-11-13T23:30:00Z")},
		},
		SSHTable: []models.SSHEvent{
			{EventTime: models.Str("2025-11-14T00:42:08Z"), IPAddress: models.Str("203.0.113.24"), Username: models.Str("root"), Result: models.Str("FAILED")},
			{IPAddress: models.Str("198.51.100.42"), Meta: &models.EventMeta{Message: models.Str("x")}},
			{IPAddress: models.Str("192.0.2.17")},
		},
		ApacheTable: []models.ApacheEvent{
			{EventTime: models.Str("2025-11-14T01:11:09Z"), IPAddress: models.Str("203.0.113.24"), Method: models.Str("POST"), Path: models.Str("/api/login"), Status: models.Int(500)},
			{Request: models.Str("/health")},
			{},
		},
		AlertsTable: []models.AlertRecord{
			{EventTime: models.Str("2025-11-14T00:29:45Z"), Indicator: models.Str("45.33.12.8"), Severity: models.Str("medium")},
		},
	}
}

func TestProjectTables(t *testing.T) {
	m := Project(sampleDataset())

	intel, ok := m.Table(IntelTableID)
	require.True(t, ok)
	assert.Equal(t, [][]string{
		{"203.0.113.24", "ipv4", "AbuseIPDB", "2025-11-14T02:00:00Z", "90"},
		{"malicious-domain.example", "-", "-", "2025-11-13T23:30:00Z", "-"},
	}, intel.Rows)

	ssh, ok := m.Table(SSHTableID)
	require.True(t, ok)
	assert.Equal(t, []string{"Nov 14, 2025, 12:42 AM", "203.0.113.24", "root", "FAILED"}, ssh.Rows[0])
	assert.Equal(t, []string{"-", "198.51.100.42", "-", "x"}, ssh.Rows[1])
	assert.Equal(t, "Failed login", ssh.Rows[2][3])

	apache, ok := m.Table(ApacheTableID)
	require.True(t, ok)
	assert.Equal(t, []string{"Nov 14, 2025, 1:11 AM", "203.0.113.24", "POST /api/login", "500"}, apache.Rows[0])
	assert.Equal(t, "GET /health", apache.Rows[1][2])
	assert.Equal(t, []string{"-", "-", "GET", "-"}, apache.Rows[2])

	alerts, ok := m.Table(AlertsTableID)
	require.True(t, ok)
	assert.Equal(t, []string{"Nov 14, 2025, 12:29 AM", "45.33.12.8", "-", "medium", "-"}, alerts.Rows[0])
}

func TestSSHOutcomePrecedence(t *testing.T) {
	assert.Equal(t, "x", models.SSHEvent{Meta: &models.EventMeta{Message: models.Str("x")}}.Outcome())
	assert.Equal(t, "Failed login", models.SSHEvent{}.Outcome())
	assert.Equal(t, "Failed login", models.SSHEvent{Meta: &models.EventMeta{Message: models.Str("")}}.Outcome())
	assert.Equal(t, "", models.SSHEvent{Result: models.Str(""), Meta: &models.EventMeta{Message: models.Str("x")}}.Outcome())
}

func TestProjectCharts(t *testing.T) {
	m := Project(sampleDataset())

	trend, ok := m.Chart(SSHTrendChartID)
	require.True(t, ok)
	assert.Equal(t, Line, trend.Kind)
	assert.Equal(t, []string{"8:00 PM", "not-a-time"}, trend.Labels)
	assert.Equal(t, []int{6, 13}, trend.Values)

	ips, _ := m.Chart(SSHTopIPsChartID)
	assert.Equal(t, []string{"203.0.113.24", "198.51.100.42"}, ips.Labels)
	assert.Equal(t, []int{32, 21}, ips.Values)

	status, _ := m.Chart(ApacheStatusChartID)
	assert.Equal(t, []string{"200", "401"}, status.Labels)

	sev, _ := m.Chart(AlertSeverityChartID)
	assert.Equal(t, PolarArea, sev.Kind)
	assert.Equal(t, []string{"HIGH", "LOW"}, sev.Labels)
	assert.Equal(t, []int{4, 2}, sev.Values)

	assert.Equal(t, []Text{
		{ID: TotalSSHID, Value: "240"},
		{ID: TotalApacheID, Value: "182"},
		{ID: TotalAlertsID, Value: "12"},
	}, m.Totals)
}

func TestProjectNilDataset(t *testing.T) {
	m := Project(nil)
	require.Len(t, m.Tables, 4)
	require.Len(t, m.Charts, 4)
	for _, tbl := range m.Tables {
		assert.Empty(t, tbl.Rows)
		assert.Equal(t, EmptyMessage, tbl.EmptyMessage)
	}
}

func TestRendererWritesAllTargets(t *testing.T) {
	sink := NewMemorySink()
	r := NewRenderer(sink)

	missing := r.Render(Project(sampleDataset()))
	assert.Empty(t, missing)
	assert.Len(t, sink.Tables, 4)
	assert.Len(t, sink.Charts, 4)
	assert.Len(t, sink.Texts, 3)
}

func TestRendererReplacesChartHandles(t *testing.T) {
	sink := NewMemorySink()
	r := NewRenderer(sink)

	r.Render(Project(sampleDataset()))
	first := sink.Charts[SSHTrendChartID]
	r.Render(Project(sampleDataset()))
	second := sink.Charts[SSHTrendChartID]

	assert.NotSame(t, first, second)
	assert.True(t, first.Destroyed)
	assert.False(t, second.Destroyed)
	assert.Equal(t, 8, sink.Created)

	r.Close()
	assert.True(t, second.Destroyed)
}

func TestRendererSkipsMissingTargets(t *testing.T) {
	sink := NewMemorySink()
	sink.Known = map[string]bool{SSHTableID: true, SSHTrendChartID: true}
	r := NewRenderer(sink)

	missing := r.Render(Project(sampleDataset()))
	assert.Len(t, missing, 9)
	assert.Contains(t, missing, IntelTableID)
	assert.Contains(t, missing, AlertSeverityChartID)
	assert.Contains(t, sink.Tables, SSHTableID)
	assert.Contains(t, sink.Charts, SSHTrendChartID)
}

type failingSink struct{ err error }

func (f failingSink) RenderTable(Table) error { return f.err }
func (f failingSink) RenderText(Text) error   { return f.err }
func (f failingSink) NewChart(Chart) (ChartHandle, error) {
	return nil, f.err
}

func TestFanoutMissingOnlyWhenAllMiss(t *testing.T) {
	mem := NewMemorySink()
	both := Fanout{failingSink{ErrTargetMissing}, mem}
	require.NoError(t, both.RenderTable(Table{ID: IntelTableID}))
	h, err := both.NewChart(Chart{ID: SSHTrendChartID})
	require.NoError(t, err)
	h.Destroy()
	assert.True(t, mem.Charts[SSHTrendChartID].Destroyed)

	none := Fanout{failingSink{ErrTargetMissing}, failingSink{ErrTargetMissing}}
	assert.ErrorIs(t, none.RenderTable(Table{ID: IntelTableID}), ErrTargetMissing)
	_, err = none.NewChart(Chart{ID: SSHTrendChartID})
	assert.ErrorIs(t, err, ErrTargetMissing)

	boom := errors.New("boom")
	broken := Fanout{failingSink{boom}, mem}
	assert.ErrorIs(t, broken.RenderText(Text{ID: TotalSSHID}), boom)
}

func TestEventSinkEmitsHandlesInOrder(t *testing.T) {
	var events []Event
	sink := NewEventSink(EmitterFunc(func(e Event) error {
		events = append(events, e)
		return nil
	}))
	r := NewRenderer(sink)

	d := sampleDataset()
	r.Render(Project(d))
	r.Render(Project(d))

	var order []string
	for _, e := range events {
		if e.Target != SSHTrendChartID {
			continue
		}
		order = append(order, e.Type)
	}
	assert.Equal(t, []string{EventChart, EventChart, EventDestroy}, order)

	var created, destroyed []uint64
	for _, e := range events {
		if e.Target != SSHTrendChartID {
			continue
		}
		if e.Type == EventChart {
			created = append(created, e.Handle)
		} else {
			destroyed = append(destroyed, e.Handle)
		}
	}
	require.Len(t, created, 2)
	assert.NotEqual(t, created[0], created[1])
	assert.Equal(t, []uint64{created[0]}, destroyed)

	sink.SetStatus("Parsing SSH and Apache logs...", false)
	sink.SetTriggers(true, "Parsing…")
	last := events[len(events)-1]
	assert.Equal(t, Event{Type: EventTriggers, Disabled: true, BusyLabel: "Parsing…"}, last)
}

func TestRendererSkipsNilChartHandles(t *testing.T) {
	r := NewRenderer(Fanout{})
	d := Project(sampleDataset())

	assert.NotPanics(t, func() {
		assert.Empty(t, r.Render(d))
		assert.Empty(t, r.Render(d))
		r.Close()
	})
	assert.Empty(t, r.charts)

	mem := NewMemorySink()
	r = NewRenderer(Fanout{Fanout{}, mem})
	r.Render(d)
	r.Render(d)
	assert.Len(t, r.charts, 4)
	r.Close()
	assert.True(t, mem.Charts[SSHTrendChartID].Destroyed)
}

func TestEventSinkLogsEmitFailures(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, logger.Warn)
	t.Cleanup(func() { logger.SetOutput(os.Stderr, logger.Info) })

	fail := false
	sink := NewEventSink(EmitterFunc(func(e Event) error {
		if fail {
			return errors.New("nats: connection closed")
		}
		return nil
	}))
	h, err := sink.NewChart(Chart{ID: SSHTrendChartID})
	require.NoError(t, err)

	fail = true
	sink.SetStatus("Parsing SSH and Apache logs...", false)
	sink.SetTriggers(false, "")
	h.Destroy()

	out := buf.String()
	assert.Contains(t, out, "Dropped status event")
	assert.Contains(t, out, "Dropped triggers event")
	assert.Contains(t, out, `Dropped destroy event for \"ssh-trend-chart\"`)
	assert.Contains(t, out, "nats: connection closed")
}
