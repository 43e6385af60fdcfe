package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cybersentinel/internal/logger"
	"cybersentinel/pkg/models"
)

// AlertWriter writes alert outputs.
type AlertWriter interface {
	WriteAlerts(alerts []*models.AlertRecord) error
	Close() error
}

// AlertBatcher buffers alerts and flushes them to a writer from its own
// goroutine, so a slow writer never holds up the caller.
type AlertBatcher struct {
	writer        AlertWriter
	in            chan *models.AlertRecord
	batchSize     int
	flushInterval time.Duration
	retryDelay    time.Duration
	started       atomic.Bool
	done          chan struct{}
	once          sync.Once
}

// NewAlertBatcher creates a batcher in front of writer.
func NewAlertBatcher(writer AlertWriter, batchSize int, flushInterval time.Duration) *AlertBatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &AlertBatcher{
		writer:        writer,
		in:            make(chan *models.AlertRecord, batchSize*4),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryDelay:    time.Second,
		done:          make(chan struct{}),
	}
}

// WriteAlerts enqueues alerts. Alerts are dropped with a warning when the
// buffer is full.
func (b *AlertBatcher) WriteAlerts(alerts []*models.AlertRecord) error {
	for _, a := range alerts {
		select {
		case b.in <- a:
		default:
			logger.Warnf("Alert buffer full; dropping alert")
		}
	}
	return nil
}

// Start launches the flush loop. It runs until ctx is done and then
// flushes what is left.
func (b *AlertBatcher) Start(ctx context.Context) {
	b.started.Store(true)
	go b.run(ctx)
}

func (b *AlertBatcher) run(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	var batch []*models.AlertRecord
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		for {
			if err := b.writer.WriteAlerts(batch); err != nil {
				logger.Errorf("Failed to write alerts: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(b.retryDelay):
				}
				continue
			}
			batch = nil
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case a := <-b.in:
					batch = append(batch, a)
				default:
					break drain
				}
			}
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(final)
			cancel()
			return
		case <-ticker.C:
			flush(ctx)
		case a := <-b.in:
			batch = append(batch, a)
			if len(batch) >= b.batchSize {
				flush(ctx)
			}
		}
	}
}

// Close waits for a started flush loop to finish and closes the writer.
func (b *AlertBatcher) Close() error {
	var err error
	b.once.Do(func() {
		if b.started.Load() {
			<-b.done
		}
		err = b.writer.Close()
	})
	return err
}
