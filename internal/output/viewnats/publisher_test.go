package viewnats

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybersentinel/internal/view"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestPublisherSubjects(t *testing.T) {
	conn := &recordingConn{}
	sink := view.NewEventSink(NewPublisher(conn, "soc.demo."))

	require.NoError(t, sink.RenderTable(view.Table{ID: view.IntelTableID}))
	h, err := sink.NewChart(view.Chart{ID: view.SSHTrendChartID, Kind: view.Line})
	require.NoError(t, err)
	h.Destroy()
	sink.SetStatus("Dashboard ready. Explore the workflow controls →", false)
	sink.SetTriggers(false, "")

	assert.Equal(t, []string{
		"soc.demo.intel-table",
		"soc.demo.ssh-trend-chart",
		"soc.demo.ssh-trend-chart",
		"soc.demo.status",
		"soc.demo.triggers",
	}, conn.subjects)

	var chart view.Event
	require.NoError(t, json.Unmarshal(conn.payloads[1], &chart))
	assert.Equal(t, view.EventChart, chart.Type)
	assert.Equal(t, view.Line, chart.Chart.Kind)

	var destroy view.Event
	require.NoError(t, json.Unmarshal(conn.payloads[2], &destroy))
	assert.Equal(t, view.EventDestroy, destroy.Type)
	assert.Equal(t, chart.Handle, destroy.Handle)
}

func TestPublisherDefaultPrefixAndErrors(t *testing.T) {
	conn := &recordingConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, "")
	assert.Equal(t, "cybersentinel.view.total-ssh", p.Subject(view.Event{Type: view.EventText, Target: view.TotalSSHID}))

	err := p.Emit(view.Event{Type: view.EventText, Target: view.TotalSSHID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cybersentinel.view.total-ssh")
	assert.NoError(t, p.Close())
}
