// Package viewnats publishes view events to NATS subjects named after their
// render targets.
package viewnats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"cybersentinel/internal/logger"
	"cybersentinel/internal/view"
)

// Config configures the NATS connection.
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// Conn is the publishing side of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher emits view events as JSON on <prefix>.<target>. Status and
// trigger events go to <prefix>.status and <prefix>.triggers.
type Publisher struct {
	conn   Conn
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS and returns a publisher.
func Connect(cfg Config) (*Publisher, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "cybersentinel"
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconnected: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := NewPublisher(nc, cfg.SubjectPrefix)
	p.nc = nc
	logger.Infof("NATS view publisher initialized: %s (prefix %s)", url, p.prefix)
	return p, nil
}

// NewPublisher publishes over an existing connection.
func NewPublisher(conn Conn, prefix string) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "cybersentinel.view"
	}
	return &Publisher{conn: conn, prefix: prefix}
}

// Subject returns the subject for e.
func (p *Publisher) Subject(e view.Event) string {
	switch e.Type {
	case view.EventStatus, view.EventTriggers:
		return p.prefix + "." + e.Type
	}
	return p.prefix + "." + e.Target
}

// Emit publishes e.
func (p *Publisher) Emit(e view.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal view event: %w", err)
	}
	subject := p.Subject(e)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
