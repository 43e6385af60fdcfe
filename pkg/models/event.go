package models

import "strings"

// DefaultSSHOutcome is shown for SSH rows that carry neither a result nor a
// meta message.
const DefaultSSHOutcome = "Failed login"

// SSHEvent is one parsed auth.log line.
type SSHEvent struct {
	EventTime *string    `json:"event_time,omitempty"`
	IPAddress *string    `json:"ip_address,omitempty"`
	Username  *string    `json:"username,omitempty"`
	Result    *string    `json:"result,omitempty"`
	Meta      *EventMeta `json:"meta,omitempty"`
}

// EventMeta carries parser extras for a log event.
type EventMeta struct {
	Message *string `json:"message,omitempty"`
	Raw     *string `json:"raw,omitempty"`
}

// Outcome resolves the display outcome. Precedence: Result when present
// (even if empty), then a non-empty Meta.Message, then DefaultSSHOutcome.
func (e SSHEvent) Outcome() string {
	if v, ok := deref(e.Result); ok {
		return v
	}
	if e.Meta != nil {
		if v, ok := deref(e.Meta.Message); ok && v != "" {
			return v
		}
	}
	return DefaultSSHOutcome
}

// ApacheEvent is one parsed access.log line.
type ApacheEvent struct {
	EventTime *string `json:"event_time,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	Method    *string `json:"method,omitempty"`
	Path      *string `json:"path,omitempty"`
	Request   *string `json:"request,omitempty"`
	Status    *int    `json:"status,omitempty"`
}

// RequestLine renders "METHOD path". Method defaults to GET, path falls
// back to the raw request and then to nothing.
func (e ApacheEvent) RequestLine() string {
	method := "GET"
	if v, ok := deref(e.Method); ok {
		method = v
	}
	path, ok := deref(e.Path)
	if !ok {
		path, _ = deref(e.Request)
	}
	return strings.TrimSpace(method + " " + path)
}
