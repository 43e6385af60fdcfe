// Package workflow sequences dashboard steps: one step at a time, a
// simulated delay, the mutator, an atomic dataset swap and a re-render.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cybersentinel/internal/demo"
	"cybersentinel/internal/logger"
	"cybersentinel/internal/metrics"
	"cybersentinel/internal/view"
	"cybersentinel/pkg/models"
)

var (
	// ErrBusy is returned when a step is already in flight. The trigger is
	// dropped, not queued.
	ErrBusy = errors.New("workflow step already in progress")
	// ErrNoDataset is returned by steps triggered before bootstrap.
	ErrNoDataset = errors.New("no dataset loaded")
)

const (
	readyMessage = "Dashboard ready. Explore the workflow controls →"
	resetMessage = "Dashboard reset to curated SOC telemetry."
)

// Resolver produces the initial dataset.
type Resolver interface {
	Resolve(ctx context.Context) (*models.Dataset, string, error)
}

// Renderer writes a view model and reports skipped targets.
type Renderer interface {
	Render(m view.Model) []string
}

// AlertExporter receives alerts generated by correlation.
type AlertExporter interface {
	WriteAlerts(alerts []*models.AlertRecord) error
}

// Delays holds the simulated latency of each step in milliseconds.
type Delays struct {
	Fetch     demo.Range `yaml:"fetch_intel"`
	Parse     demo.Range `yaml:"parse_logs"`
	Correlate demo.Range `yaml:"run_correlation"`
}

// DefaultDelays returns the stock step latencies.
func DefaultDelays() Delays {
	return Delays{
		Fetch:     demo.Range{Min: 500, Max: 900},
		Parse:     demo.Range{Min: 600, Max: 1000},
		Correlate: demo.Range{Min: 650, Max: 1100},
	}
}

func (d Delays) of(a Action) demo.Range {
	switch a {
	case FetchIntel:
		return d.Fetch
	case ParseLogs:
		return d.Parse
	case RunCorrelation:
		return d.Correlate
	}
	return demo.Range{}
}

// Result describes one completed step.
type Result struct {
	RunID   string              `json:"run_id"`
	Action  Action              `json:"action"`
	Message string              `json:"message"`
	Source  string              `json:"source,omitempty"`
	Delta   int                 `json:"delta,omitempty"`
	Logs    *demo.LogDelta      `json:"logs,omitempty"`
	Alert   *models.AlertRecord `json:"alert,omitempty"`
	Missing []string            `json:"missing_targets,omitempty"`
	Elapsed time.Duration       `json:"elapsed"`
	Dataset *models.Dataset     `json:"-"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelays overrides the step latencies.
func WithDelays(d Delays) Option {
	return func(o *Orchestrator) { o.delays = d }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAlertExporter forwards correlation alerts to x.
func WithAlertExporter(x AlertExporter) Option {
	return func(o *Orchestrator) { o.exporter = x }
}

// WithStatus sets the status publisher.
func WithStatus(p StatusPublisher) Option {
	return func(o *Orchestrator) { o.status = p }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator owns the active dataset and runs steps against it.
type Orchestrator struct {
	engine   *demo.Engine
	source   Resolver
	renderer Renderer
	status   StatusPublisher
	exporter AlertExporter
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	delays   Delays

	busy    atomic.Bool
	current atomic.Pointer[models.Dataset]
	base    atomic.Pointer[models.Dataset]
}

// New creates an orchestrator. source may be nil when datasets are only
// installed through Load.
func New(engine *demo.Engine, source Resolver, renderer Renderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		source:   source,
		renderer: renderer,
		status:   LogPublisher{},
		delays:   DefaultDelays(),
		tracer:   otel.Tracer("cybersentinel/workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Current returns the active dataset, or nil before bootstrap. The
// returned snapshot must not be modified.
func (o *Orchestrator) Current() *models.Dataset {
	return o.current.Load()
}

// Busy reports whether a step is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Trigger runs action. It returns ErrBusy without side effects when another
// step holds the gate.
func (o *Orchestrator) Trigger(ctx context.Context, action Action) (Result, error) {
	switch action {
	case Bootstrap:
		return o.Bootstrap(ctx)
	case Reset:
		return o.Reset(ctx)
	}
	if !known(action) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !o.acquire(action) {
		return Result{}, ErrBusy
	}

	return o.run(ctx, action, func(ctx context.Context, res *Result) error {
		cur := o.current.Load()
		if cur == nil {
			return ErrNoDataset
		}
		if err := o.sleep(ctx, time.Duration(o.engine.Draw(o.delays.of(action)))*time.Millisecond); err != nil {
			return err
		}
		next, err := o.mutate(action, cur, res)
		if err != nil {
			return err
		}
		o.install(next, res)
		if res.Alert != nil {
			o.export(res.Alert)
		}
		return nil
	})
}

// Bootstrap resolves the initial dataset, keeps a base copy for Reset and
// renders it.
func (o *Orchestrator) Bootstrap(ctx context.Context) (Result, error) {
	if !o.acquire(Bootstrap) {
		return Result{}, ErrBusy
	}

	return o.run(ctx, Bootstrap, func(ctx context.Context, res *Result) error {
		if o.source == nil {
			return errors.New("no dataset source configured")
		}
		d, name, err := o.source.Resolve(ctx)
		if err != nil {
			return err
		}
		o.base.Store(d.Clone())
		res.Source = name
		res.Message = readyMessage
		o.install(d, res)
		return nil
	})
}

// Load installs d as both base and current dataset without the source
// chain. It runs under the gate.
func (o *Orchestrator) Load(ctx context.Context, d *models.Dataset) (Result, error) {
	if d == nil {
		return Result{}, ErrNoDataset
	}
	if !o.acquire(Bootstrap) {
		return Result{}, ErrBusy
	}

	return o.run(ctx, Bootstrap, func(ctx context.Context, res *Result) error {
		o.base.Store(d.Clone())
		res.Message = readyMessage
		o.install(d.Clone(), res)
		return nil
	})
}

// Reset restores the dataset captured at bootstrap.
func (o *Orchestrator) Reset(ctx context.Context) (Result, error) {
	if !o.acquire(Reset) {
		return Result{}, ErrBusy
	}

	return o.run(ctx, Reset, func(ctx context.Context, res *Result) error {
		base := o.base.Load()
		if base == nil {
			return ErrNoDataset
		}
		res.Message = resetMessage
		o.install(base.Clone(), res)
		return nil
	})
}

func known(a Action) bool {
	for _, k := range Actions() {
		if k == a {
			return true
		}
	}
	return false
}

func (o *Orchestrator) acquire(action Action) bool {
	if o.busy.CompareAndSwap(false, true) {
		return true
	}
	logger.Debugf("Trigger %s rejected: step in progress", action)
	o.metrics.ObserveRejected(string(action))
	return false
}

func (o *Orchestrator) release() {
	o.busy.Store(false)
}

// run wraps step with tracing, trigger state, status lines and metrics.
// The caller must hold the gate; run releases it on every path before
// triggers are announced as enabled again.
func (o *Orchestrator) run(ctx context.Context, action Action, step func(context.Context, *Result) error) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), Action: action}

	ctx, span := o.tracer.Start(ctx, "workflow."+string(action), trace.WithAttributes(
		attribute.String("workflow.run_id", res.RunID),
		attribute.String("workflow.action", string(action)),
	))
	defer span.End()

	o.status.SetTriggers(true, action.BusyLabel())
	defer func() {
		o.release()
		o.status.SetTriggers(false, "")
	}()
	o.status.SetStatus(action.progress(), false)

	err := step(ctx, &res)
	res.Elapsed = time.Since(start)
	o.metrics.ObserveRun(string(action), err, res.Elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warnf("Workflow %s (%s) failed: %v", action, res.RunID, err)
		o.status.SetStatus(action.failure(err), true)
		return res, err
	}

	span.SetAttributes(attribute.Int("workflow.missing_targets", len(res.Missing)))
	logger.Infof("Workflow %s (%s) completed in %s", action, res.RunID, res.Elapsed.Round(time.Millisecond))
	o.status.SetStatus(res.Message, false)
	return res, nil
}

// mutate applies the step's mutator and fills in the result message.
func (o *Orchestrator) mutate(action Action, cur *models.Dataset, res *Result) (next *models.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, fmt.Errorf("%v", r)
		}
	}()

	switch action {
	case FetchIntel:
		next, res.Delta = o.engine.Intel(cur)
		res.Message = fmt.Sprintf("Fetched threat intel: %d indicators (%+d)", next.KPIs.IntelCount, res.Delta)
	case ParseLogs:
		var delta demo.LogDelta
		next, delta = o.engine.Logs(cur)
		res.Logs = &delta
		res.Message = fmt.Sprintf("Parsed logs: SSH +%d events, Apache +%d requests (synthetic demo)", delta.SSH, delta.Apache)
	case RunCorrelation:
		var alert models.AlertRecord
		next, alert = o.engine.Correlation(cur)
		res.Alert = &alert
		res.Message = fmt.Sprintf("Generated alert: %s (%s) - %s",
			deref(alert.Indicator), strings.ToUpper(deref(alert.Severity)), deref(alert.Message))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return next, nil
}

// install swaps in d and re-renders. Callers hold the gate.
func (o *Orchestrator) install(d *models.Dataset, res *Result) {
	o.current.Store(d)
	res.Dataset = d
	if o.renderer != nil {
		res.Missing = o.renderer.Render(view.Project(d))
		o.metrics.ObserveMissing(res.Missing)
	}
	o.metrics.SetKPIs(d.KPIs)
}

func (o *Orchestrator) export(alert *models.AlertRecord) {
	if o.exporter == nil {
		return
	}
	if err := o.exporter.WriteAlerts([]*models.AlertRecord{alert}); err != nil {
		logger.Errorf("Alert export failed: %v", err)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func deref(s *string) string {
	if s == nil {
		return view.Placeholder
	}
	return *s
}
