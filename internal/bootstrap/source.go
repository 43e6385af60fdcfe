// Package bootstrap resolves the initial dataset from an ordered chain of
// sources, degrading to a built-in fallback.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"cybersentinel/internal/logger"
	"cybersentinel/pkg/models"
)

// ErrDataUnavailable is returned when no source in the chain produced a
// valid dataset.
var ErrDataUnavailable = errors.New("demo data unavailable")

// TransientError wraps the failure of one source. The chain logs it and
// moves on to the next source.
type TransientError struct {
	Source string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Source yields one raw dataset document.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// Observer is told the outcome of every source attempt.
type Observer interface {
	ObserveSource(source string, ok bool)
}

// Chain tries its sources in order; the first valid payload wins.
type Chain struct {
	sources  []Source
	observer Observer
}

// NewChain creates a chain over sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// WithObserver sets the observer and returns the chain.
func (c *Chain) WithObserver(o Observer) *Chain {
	c.observer = o
	return c
}

// Sources lists the source names in resolution order.
func (c *Chain) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Resolve returns the first dataset that fetches and validates, with the
// name of the source it came from.
func (c *Chain) Resolve(ctx context.Context) (*models.Dataset, string, error) {
	var failures []error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		d, err := load(ctx, src)
		if c.observer != nil {
			c.observer.ObserveSource(src.Name(), err == nil)
		}
		if err != nil {
			terr := &TransientError{Source: src.Name(), Err: err}
			logger.Warnf("Bootstrap source failed: %v", terr)
			failures = append(failures, terr)
			continue
		}
		logger.Infof("Bootstrap dataset loaded from %s", src.Name())
		return d, src.Name(), nil
	}
	if len(failures) == 0 {
		return nil, "", fmt.Errorf("%w: no sources configured", ErrDataUnavailable)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrDataUnavailable, errors.Join(failures...))
}

func load(ctx context.Context, src Source) (*models.Dataset, error) {
	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}
