package view

import (
	"errors"
	"fmt"

	"cybersentinel/internal/logger"
)

// ErrTargetMissing is returned by a sink that has no target with the
// requested id.
var ErrTargetMissing = errors.New("render target missing")

// ChartHandle is a live chart owned by the renderer.
type ChartHandle interface {
	Destroy()
}

// Sink receives rendered targets.
type Sink interface {
	RenderTable(t Table) error
	RenderText(t Text) error
	NewChart(c Chart) (ChartHandle, error)
}

// Renderer writes models into a sink and owns the chart handles it created.
// Every Render is a full re-render: each chart gets a fresh handle and the
// previous one is destroyed before the new one is installed.
type Renderer struct {
	sink   Sink
	charts map[string]ChartHandle
}

// NewRenderer creates a renderer for sink.
func NewRenderer(sink Sink) *Renderer {
	return &Renderer{
		sink:   sink,
		charts: make(map[string]ChartHandle),
	}
}

// Render writes every target of m. Targets the sink does not know are
// logged and skipped; their ids are returned.
func (r *Renderer) Render(m Model) []string {
	var missing []string
	note := func(id string, err error) {
		if err == nil {
			return
		}
		if errors.Is(err, ErrTargetMissing) {
			logger.Warnf("Render target %s not found; skipped", id)
			missing = append(missing, id)
			return
		}
		logger.Errorf("Render target %s failed: %v", id, err)
	}

	for _, t := range m.Totals {
		note(t.ID, r.sink.RenderText(t))
	}
	for _, t := range m.Tables {
		note(t.ID, r.sink.RenderTable(t))
	}
	for _, c := range m.Charts {
		if c.ID == AlertSeverityChartID && len(c.Labels) == 0 {
			logger.Warnf("Dataset missing alert severity counts")
		}
		handle, err := r.sink.NewChart(c)
		if err != nil {
			note(c.ID, err)
			continue
		}
		if handle == nil {
			continue
		}
		if old, ok := r.charts[c.ID]; ok {
			old.Destroy()
		}
		r.charts[c.ID] = handle
	}
	return missing
}

// Close destroys every chart handle.
func (r *Renderer) Close() {
	for id, h := range r.charts {
		h.Destroy()
		delete(r.charts, id)
	}
}

// Fanout renders into several sinks. A target counts as missing only when
// every sink reports it missing.
type Fanout []Sink

// RenderTable renders t into every sink.
func (f Fanout) RenderTable(t Table) error {
	return f.each(func(s Sink) error { return s.RenderTable(t) })
}

// RenderText renders t into every sink.
func (f Fanout) RenderText(t Text) error {
	return f.each(func(s Sink) error { return s.RenderText(t) })
}

// NewChart creates c in every sink that has the target.
func (f Fanout) NewChart(c Chart) (ChartHandle, error) {
	var handles multiHandle
	err := f.each(func(s Sink) error {
		h, err := s.NewChart(c)
		if err == nil && h != nil {
			handles = append(handles, h)
		}
		return err
	})
	if len(handles) == 0 {
		return nil, err
	}
	if err != nil {
		logger.Warnf("Chart %s rendered partially: %v", c.ID, err)
	}
	return handles, nil
}

func (f Fanout) each(fn func(Sink) error) error {
	var errs []error
	missing := 0
	for _, s := range f {
		err := fn(s)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrTargetMissing) {
			missing++
			continue
		}
		errs = append(errs, err)
	}
	if len(f) > 0 && missing == len(f) {
		return ErrTargetMissing
	}
	return errors.Join(errs...)
}

type multiHandle []ChartHandle

func (m multiHandle) Destroy() {
	for _, h := range m {
		h.Destroy()
	}
}

// MemorySink keeps the latest render of every target in memory.
type MemorySink struct {
	// Known restricts the sink to these ids when non-nil.
	Known map[string]bool

	Tables  map[string]Table
	Texts   map[string]Text
	Charts  map[string]*MemoryChart
	Created int
}

// MemoryChart is a chart handle held by a MemorySink.
type MemoryChart struct {
	Chart     Chart
	Destroyed bool
}

// Destroy marks the chart destroyed.
func (c *MemoryChart) Destroy() {
	c.Destroyed = true
}

// NewMemorySink creates a sink that accepts every target.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		Tables: make(map[string]Table),
		Texts:  make(map[string]Text),
		Charts: make(map[string]*MemoryChart),
	}
}

func (s *MemorySink) has(id string) error {
	if s.Known != nil && !s.Known[id] {
		return fmt.Errorf("%s: %w", id, ErrTargetMissing)
	}
	return nil
}

// RenderTable stores t.
func (s *MemorySink) RenderTable(t Table) error {
	if err := s.has(t.ID); err != nil {
		return err
	}
	s.Tables[t.ID] = t
	return nil
}

// RenderText stores t.
func (s *MemorySink) RenderText(t Text) error {
	if err := s.has(t.ID); err != nil {
		return err
	}
	s.Texts[t.ID] = t
	return nil
}

// NewChart stores c and returns its handle.
func (s *MemorySink) NewChart(c Chart) (ChartHandle, error) {
	if err := s.has(c.ID); err != nil {
		return nil, err
	}
	h := &MemoryChart{Chart: c}
	s.Charts[c.ID] = h
	s.Created++
	return h, nil
}
