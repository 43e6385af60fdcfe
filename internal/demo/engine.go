// Package demo synthesizes plausible next states of a dashboard dataset.
//
// Every mutator deep-copies its input, keeps the derived aggregates in step
// with the detail lists, and reports the delta it applied.
package demo

import (
	"math"
	"time"
)

// Engine binds the mutators to a randomness source, a clock and a catalog.
// It is not safe for concurrent use; callers serialize steps.
type Engine struct {
	rand    Rand
	now     func() time.Time
	catalog *Catalog
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCatalog overrides DefaultCatalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// NewEngine creates an engine drawing from src.
func NewEngine(src Rand, opts ...Option) *Engine {
	e := &Engine{
		rand:    src,
		now:     time.Now,
		catalog: DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draw returns an inclusive draw from r using the engine's source. The
// engine is not safe for concurrent use; callers serialize access.
func (e *Engine) Draw(r Range) int {
	return r.Draw(e.rand)
}

func (e *Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// prependCapped puts item in front of list and keeps at most
// max(minimum, len(list)) entries.
func prependCapped[T any](list []T, item T, minimum int) []T {
	limit := max(minimum, len(list), 1)
	out := make([]T, 0, limit)
	out = append(out, item)
	for _, v := range list {
		if len(out) == limit {
			break
		}
		out = append(out, v)
	}
	return out
}

// rotateForward moves the head of list to its tail.
func rotateForward[T any](list []T) []T {
	if len(list) == 0 {
		return []T{}
	}
	out := make([]T, 0, len(list))
	out = append(out, list[1:]...)
	return append(out, list[0])
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// share is max(1, round(delta/div)).
func share(delta, div int) int {
	return max(1, int(math.Round(float64(delta)/float64(div))))
}
