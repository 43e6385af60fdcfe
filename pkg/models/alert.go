package models

// Severity levels tracked by the alert histogram.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// AlertRecord is one correlated alert row.
type AlertRecord struct {
	CreatedAt *string `json:"created_at,omitempty"`
	EventTime *string `json:"event_time,omitempty"`
	Indicator *string `json:"indicator,omitempty"`
	LogSource *string `json:"log_source,omitempty"`
	Severity  *string `json:"severity,omitempty"`
	Message   *string `json:"message,omitempty"`
}

// Timestamp returns CreatedAt, falling back to EventTime.
func (a AlertRecord) Timestamp() (string, bool) {
	if v, ok := deref(a.CreatedAt); ok {
		return v, true
	}
	return deref(a.EventTime)
}
