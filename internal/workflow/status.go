package workflow

import (
	"cybersentinel/internal/logger"
)

// StatusPublisher receives the status line and trigger state.
type StatusPublisher interface {
	SetStatus(message string, isError bool)
	SetTriggers(disabled bool, busyLabel string)
}

// Publishers fans status out to several publishers.
type Publishers []StatusPublisher

func (p Publishers) SetStatus(message string, isError bool) {
	for _, pub := range p {
		pub.SetStatus(message, isError)
	}
}

func (p Publishers) SetTriggers(disabled bool, busyLabel string) {
	for _, pub := range p {
		pub.SetTriggers(disabled, busyLabel)
	}
}

// LogPublisher writes status changes to the application log.
type LogPublisher struct{}

func (LogPublisher) SetStatus(message string, isError bool) {
	if isError {
		logger.Errorf("Status: %s", message)
		return
	}
	logger.Infof("Status: %s", message)
}

func (LogPublisher) SetTriggers(disabled bool, busyLabel string) {
	if disabled {
		logger.Debugf("Triggers disabled (%s)", busyLabel)
		return
	}
	logger.Debugf("Triggers enabled")
}
