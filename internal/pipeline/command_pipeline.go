package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"cybersentinel/internal/logger"
	"cybersentinel/internal/workflow"
)

// Command is one queued trigger request.
type Command struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// NewCommand builds a command with a fresh id.
func NewCommand(action workflow.Action) Command {
	return Command{ID: uuid.NewString(), Action: string(action)}
}

// ParseCommand decodes a queued payload. A bare action name is accepted as
// well as the JSON form.
func ParseCommand(payload []byte) (Command, workflow.Action, error) {
	var cmd Command
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return cmd, "", fmt.Errorf("decode command: %w", err)
		}
	} else {
		cmd.Action = trimmed
	}
	action, err := workflow.ParseAction(cmd.Action)
	if err != nil {
		return cmd, "", err
	}
	return cmd, action, nil
}

// Popper yields raw queued payloads.
type Popper interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// Dispatcher runs one workflow action.
type Dispatcher interface {
	Trigger(ctx context.Context, action workflow.Action) (workflow.Result, error)
}

// CommandObserver counts processed commands by outcome.
type CommandObserver interface {
	ObserveCommand(outcome string)
}

// CommandPipeline consumes queued commands and dispatches them to the
// orchestrator. Commands are dispatched one at a time; a command that
// meets a busy gate is dropped like any overlapping trigger.
type CommandPipeline struct {
	consumer   Popper
	dispatcher Dispatcher
	observer   CommandObserver
	seen       *lru.Cache[string, struct{}]
	retryDelay time.Duration
}

// NewCommandPipeline creates a pipeline remembering the last dedupeSize
// command ids.
func NewCommandPipeline(consumer Popper, dispatcher Dispatcher, observer CommandObserver, dedupeSize int) (*CommandPipeline, error) {
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &CommandPipeline{
		consumer:   consumer,
		dispatcher: dispatcher,
		observer:   observer,
		seen:       seen,
		retryDelay: 500 * time.Millisecond,
	}, nil
}

// Run starts the pipeline loop and returns when ctx is done.
func (p *CommandPipeline) Run(ctx context.Context) error {
	logger.Infof("Redis command pipeline started")

	msgCh := make(chan []byte, 16)
	go func() {
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	for payload := range msgCh {
		p.handle(ctx, payload)
	}
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *CommandPipeline) Close() error {
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *CommandPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop redis command: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		if payload == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *CommandPipeline) handle(ctx context.Context, payload []byte) {
	cmd, action, err := ParseCommand(payload)
	if err != nil {
		logger.Warnf("Failed to parse command: %v", err)
		p.observe("invalid")
		return
	}
	if cmd.ID != "" {
		if ok, _ := p.seen.ContainsOrAdd(cmd.ID, struct{}{}); ok {
			logger.Debugf("Duplicate command %s ignored", cmd.ID)
			p.observe("duplicate")
			return
		}
	}

	_, err = p.dispatcher.Trigger(ctx, action)
	switch {
	case err == nil:
		p.observe("dispatched")
	case errors.Is(err, workflow.ErrBusy):
		logger.Infof("Command %s (%s) dropped: step in progress", cmd.ID, action)
		p.observe("busy")
	default:
		logger.Warnf("Command %s (%s) failed: %v", cmd.ID, action, err)
		p.observe("failed")
	}
}

func (p *CommandPipeline) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObserveCommand(outcome)
	}
}
