package models

// IntelRecord is one threat-intel indicator.
type IntelRecord struct {
	Indicator  *string `json:"indicator,omitempty"`
	Type       *string `json:"type,omitempty"`
	Source     *string `json:"source,omitempty"`
	Confidence *int    `json:"confidence,omitempty"`
	FirstSeen  *string `json:"first_seen,omitempty"`
	LastSeen   *string `json:"last_seen,omitempty"`
}

// Seen returns LastSeen, falling back to FirstSeen.
func (r IntelRecord) Seen() (string, bool) {
	if v, ok := deref(r.LastSeen); ok {
		return v, true
	}
	return deref(r.FirstSeen)
}
