package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Dataset is one complete dashboard snapshot.
//
// A Dataset handed to the view layer is never modified again. Mutations
// work on a Clone. Records are values and their pointer fields are never
// written through, so copying the slices is a full copy.
type Dataset struct {
	UpdatedAt           string          `json:"updated_at,omitempty"`
	KPIs                KPIs            `json:"kpis"`
	SSHTopIPs           []IPCount       `json:"ssh_top_ips"`
	SSHTopUsers         []UserCount     `json:"ssh_top_users,omitempty"`
	SSHFailuresOverTime []TimeBucket    `json:"ssh_failures_over_time"`
	ApacheTopPaths      []PathCount     `json:"apache_top_paths,omitempty"`
	ApacheStatusCounts  []StatusCount   `json:"apache_status_counts"`
	AlertSeverityCounts []SeverityCount `json:"alert_severity_counts"`
	IntelTable          []IntelRecord   `json:"intel_table"`
	SSHTable            []SSHEvent      `json:"ssh_table"`
	ApacheTable         []ApacheEvent   `json:"apache_table"`
	AlertsTable         []AlertRecord   `json:"alerts_table"`
}

// KPIs are the running counters shown in the header tiles.
type KPIs struct {
	IntelCount   int `json:"intel_count"`
	SSHEvents    int `json:"ssh_events"`
	ApacheEvents int `json:"apache_events"`
	Alerts       int `json:"alerts"`
}

// IPCount is one source-IP bucket.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// UserCount is one targeted-username bucket.
type UserCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// PathCount is one requested-path bucket.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// TimeBucket is one point of the SSH failure trend.
type TimeBucket struct {
	Time  string `json:"time"`
	Count int    `json:"count"`
}

// StatusCount is one HTTP status bucket.
type StatusCount struct {
	Status StatusCode `json:"status"`
	Count  int        `json:"count"`
}

// SeverityCount is one alert severity bucket.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// StatusCode is an HTTP status kept as text. It decodes from a JSON string
// or number and always encodes as a string.
type StatusCode string

// UnmarshalJSON accepts "200" and 200.
func (c *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StatusCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("status code: %w", err)
	}
	*c = StatusCode(n.String())
	return nil
}

// Matches reports whether the code names the given numeric status.
func (c StatusCode) Matches(status int) bool {
	return string(c) == strconv.Itoa(status)
}

// Normalize replaces nil collections with empty ones so d always encodes
// arrays, never null.
func (d *Dataset) Normalize() {
	norm(&d.SSHTopIPs)
	norm(&d.SSHTopUsers)
	norm(&d.SSHFailuresOverTime)
	norm(&d.ApacheTopPaths)
	norm(&d.ApacheStatusCounts)
	norm(&d.AlertSeverityCounts)
	norm(&d.IntelTable)
	norm(&d.SSHTable)
	norm(&d.ApacheTable)
	norm(&d.AlertsTable)
}

// Clone returns a copy that shares no slices with d. Nil collections come
// back empty.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := *d
	out.SSHTopIPs = cloneSlice(d.SSHTopIPs)
	out.SSHTopUsers = cloneSlice(d.SSHTopUsers)
	out.SSHFailuresOverTime = cloneSlice(d.SSHFailuresOverTime)
	out.ApacheTopPaths = cloneSlice(d.ApacheTopPaths)
	out.ApacheStatusCounts = cloneSlice(d.ApacheStatusCounts)
	out.AlertSeverityCounts = cloneSlice(d.AlertSeverityCounts)
	out.IntelTable = cloneSlice(d.IntelTable)
	out.SSHTable = cloneSlice(d.SSHTable)
	out.ApacheTable = cloneSlice(d.ApacheTable)
	out.AlertsTable = cloneSlice(d.AlertsTable)
	return &out
}

func norm[T any](s *[]T) {
	if *s == nil {
		*s = []T{}
	}
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
