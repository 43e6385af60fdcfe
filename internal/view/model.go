// Package view projects a dataset into dashboard tables, charts and totals
// and renders them into a sink.
package view

import (
	"strconv"
	"strings"
	"time"

	"cybersentinel/pkg/models"
)

// Stable target identifiers.
const (
	IntelTableID  = "intel-table"
	SSHTableID    = "ssh-table"
	ApacheTableID = "apache-table"
	AlertsTableID = "alerts-table"

	SSHTrendChartID      = "ssh-trend-chart"
	SSHTopIPsChartID     = "ssh-top-ips-chart"
	ApacheStatusChartID  = "apache-status-chart"
	AlertSeverityChartID = "alert-severity-chart"

	TotalSSHID    = "total-ssh"
	TotalApacheID = "total-apache"
	TotalAlertsID = "total-alerts"
)

const (
	// Placeholder fills any cell whose source field is absent.
	Placeholder = "-"
	// EmptyMessage is shown by tables without rows.
	EmptyMessage = "No data available."
)

// ChartKind names the renderer's chart type.
type ChartKind string

const (
	Line      ChartKind = "line"
	Bar       ChartKind = "bar"
	Doughnut  ChartKind = "doughnut"
	PolarArea ChartKind = "polarArea"
)

// Table is one fully rendered table body.
type Table struct {
	ID           string     `json:"id"`
	Columns      []string   `json:"columns"`
	Rows         [][]string `json:"rows"`
	EmptyMessage string     `json:"empty_message"`
}

// Chart is one labels/values series.
type Chart struct {
	ID     string    `json:"id"`
	Kind   ChartKind `json:"kind"`
	Label  string    `json:"label,omitempty"`
	Labels []string  `json:"labels"`
	Values []int     `json:"values"`
}

// Text is a single text target such as a KPI tile.
type Text struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Model is the complete view state for one dataset.
type Model struct {
	Tables []Table `json:"tables"`
	Charts []Chart `json:"charts"`
	Totals []Text  `json:"totals"`
}

// Table returns the table with the given id.
func (m Model) Table(id string) (Table, bool) {
	for _, t := range m.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// Chart returns the chart with the given id.
func (m Model) Chart(id string) (Chart, bool) {
	for _, c := range m.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Project builds the view model for d. A nil dataset yields empty tables
// and charts.
func Project(d *models.Dataset) Model {
	if d == nil {
		d = &models.Dataset{}
	}
	return Model{
		Tables: []Table{
			intelTable(d.IntelTable),
			sshTable(d.SSHTable),
			apacheTable(d.ApacheTable),
			alertsTable(d.AlertsTable),
		},
		Charts: []Chart{
			sshTrendChart(d.SSHFailuresOverTime),
			sshTopIPsChart(d.SSHTopIPs),
			apacheStatusChart(d.ApacheStatusCounts),
			alertSeverityChart(d.AlertSeverityCounts),
		},
		Totals: []Text{
			{ID: TotalSSHID, Value: strconv.Itoa(d.KPIs.SSHEvents)},
			{ID: TotalApacheID, Value: strconv.Itoa(d.KPIs.ApacheEvents)},
			{ID: TotalAlertsID, Value: strconv.Itoa(d.KPIs.Alerts)},
		},
	}
}

func intelTable(records []models.IntelRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		seen, ok := rec.Seen()
		if !ok {
			seen = Placeholder
		}
		rows = append(rows, []string{
			cell(rec.Indicator),
			cell(rec.Type),
			cell(rec.Source),
			seen,
			intCell(rec.Confidence),
		})
	}
	return Table{
		ID:           IntelTableID,
		Columns:      []string{"Indicator", "Type", "Source", "Last Seen", "Confidence"},
		Rows:         rows,
		EmptyMessage: EmptyMessage,
	}
}

func sshTable(events []models.SSHEvent) Table {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			formatTimestamp(ev.EventTime),
			cell(ev.IPAddress),
			cell(ev.Username),
			ev.Outcome(),
		})
	}
	return Table{
		ID:           SSHTableID,
		Columns:      []string{"Time", "IP Address", "Username", "Result"},
		Rows:         rows,
		EmptyMessage: EmptyMessage,
	}
}

func apacheTable(events []models.ApacheEvent) Table {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			formatTimestamp(ev.EventTime),
			cell(ev.IPAddress),
			ev.RequestLine(),
			intCell(ev.Status),
		})
	}
	return Table{
		ID:           ApacheTableID,
		Columns:      []string{"Time", "IP Address", "Request", "Status"},
		Rows:         rows,
		EmptyMessage: EmptyMessage,
	}
}

func alertsTable(alerts []models.AlertRecord) Table {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		var ts *string
		if v, ok := a.Timestamp(); ok {
			ts = &v
		}
		rows = append(rows, []string{
			formatTimestamp(ts),
			cell(a.Indicator),
			cell(a.LogSource),
			cell(a.Severity),
			cell(a.Message),
		})
	}
	return Table{
		ID:           AlertsTableID,
		Columns:      []string{"Time", "Indicator", "Log Source", "Severity", "Message"},
		Rows:         rows,
		EmptyMessage: EmptyMessage,
	}
}

func sshTrendChart(buckets []models.TimeBucket) Chart {
	c := Chart{ID: SSHTrendChartID, Kind: Line, Label: "SSH Failures"}
	c.Labels = make([]string, 0, len(buckets))
	c.Values = make([]int, 0, len(buckets))
	for _, b := range buckets {
		c.Labels = append(c.Labels, formatHourLabel(b.Time))
		c.Values = append(c.Values, b.Count)
	}
	return c
}

func sshTopIPsChart(buckets []models.IPCount) Chart {
	c := Chart{ID: SSHTopIPsChartID, Kind: Bar, Label: "Attempts"}
	c.Labels = make([]string, 0, len(buckets))
	c.Values = make([]int, 0, len(buckets))
	for _, b := range buckets {
		c.Labels = append(c.Labels, b.IP)
		c.Values = append(c.Values, b.Count)
	}
	return c
}

func apacheStatusChart(buckets []models.StatusCount) Chart {
	c := Chart{ID: ApacheStatusChartID, Kind: Doughnut}
	c.Labels = make([]string, 0, len(buckets))
	c.Values = make([]int, 0, len(buckets))
	for _, b := range buckets {
		c.Labels = append(c.Labels, string(b.Status))
		c.Values = append(c.Values, b.Count)
	}
	return c
}

func alertSeverityChart(buckets []models.SeverityCount) Chart {
	c := Chart{ID: AlertSeverityChartID, Kind: PolarArea}
	c.Labels = make([]string, 0, len(buckets))
	c.Values = make([]int, 0, len(buckets))
	for _, b := range buckets {
		c.Labels = append(c.Labels, strings.ToUpper(b.Severity))
		c.Values = append(c.Values, b.Count)
	}
	return c
}

func cell(s *string) string {
	if s == nil {
		return Placeholder
	}
	return *s
}

func intCell(n *int) string {
	if n == nil {
		return Placeholder
	}
	return strconv.Itoa(*n)
}

func formatTimestamp(iso *string) string {
	if iso == nil || *iso == "" {
		return Placeholder
	}
	t, err := time.Parse(time.RFC3339, *iso)
	if err != nil {
		return *iso
	}
	return t.UTC().Format("Jan 2, 2006, 3:04 PM")
}

func formatHourLabel(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.UTC().Format("3:04 PM")
}
