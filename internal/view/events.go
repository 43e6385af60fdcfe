package view

import (
	"sync/atomic"

	"cybersentinel/internal/logger"
)

// Event types carried by an EventSink.
const (
	EventTable    = "table"
	EventText     = "text"
	EventChart    = "chart"
	EventDestroy  = "destroy"
	EventStatus   = "status"
	EventTriggers = "triggers"
)

// Event is one update pushed to a remote view. Chart and destroy events
// carry the handle they refer to so a client can tell a replaced chart from
// its successor.
type Event struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	Handle    uint64 `json:"handle,omitempty"`
	Table     *Table `json:"table,omitempty"`
	Chart     *Chart `json:"chart,omitempty"`
	Text      *Text  `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
	BusyLabel string `json:"busy_label,omitempty"`
}

// Emitter delivers events.
type Emitter interface {
	Emit(e Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(e Event) error

func (f EmitterFunc) Emit(e Event) error { return f(e) }

// EventSink turns render calls and status changes into events. It has every
// target, so it never reports one missing.
type EventSink struct {
	emitter Emitter
	handles atomic.Uint64
}

// NewEventSink creates a sink emitting to e.
func NewEventSink(e Emitter) *EventSink {
	return &EventSink{emitter: e}
}

func (s *EventSink) RenderTable(t Table) error {
	return s.emitter.Emit(Event{Type: EventTable, Target: t.ID, Table: &t})
}

func (s *EventSink) RenderText(t Text) error {
	return s.emitter.Emit(Event{Type: EventText, Target: t.ID, Text: &t})
}

func (s *EventSink) NewChart(c Chart) (ChartHandle, error) {
	h := &eventChart{sink: s, id: c.ID, handle: s.handles.Add(1)}
	if err := s.emitter.Emit(Event{Type: EventChart, Target: c.ID, Handle: h.handle, Chart: &c}); err != nil {
		return nil, err
	}
	return h, nil
}

// SetStatus emits the status line.
func (s *EventSink) SetStatus(message string, isError bool) {
	s.emit(Event{Type: EventStatus, Message: message, IsError: isError})
}

// SetTriggers emits the trigger state.
func (s *EventSink) SetTriggers(disabled bool, busyLabel string) {
	s.emit(Event{Type: EventTriggers, Disabled: disabled, BusyLabel: busyLabel})
}

// emit delivers events that have no caller to report failure to.
func (s *EventSink) emit(e Event) {
	if err := s.emitter.Emit(e); err != nil {
		logger.Warnf("Dropped %s event for %q: %v", e.Type, e.Target, err)
	}
}

type eventChart struct {
	sink      *EventSink
	id        string
	handle    uint64
	destroyed atomic.Bool
}

func (c *eventChart) Destroy() {
	if c.destroyed.Swap(true) {
		return
	}
	c.sink.emit(Event{Type: EventDestroy, Target: c.id, Handle: c.handle})
}
