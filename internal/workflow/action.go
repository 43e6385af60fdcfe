package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for action names that map to no step.
var ErrUnknownAction = errors.New("unknown workflow action")

// Action names one workflow step.
type Action string

const (
	FetchIntel     Action = "fetch-intel"
	ParseLogs      Action = "parse-logs"
	RunCorrelation Action = "run-correlation"
	Bootstrap      Action = "bootstrap"
	Reset          Action = "reset"
)

// Actions lists the user-facing steps in dashboard order.
func Actions() []Action {
	return []Action{FetchIntel, ParseLogs, RunCorrelation}
}

var aliases = map[string]Action{
	"fetch-intel":     FetchIntel,
	"fetchintel":      FetchIntel,
	"parse-logs":      ParseLogs,
	"parselogs":       ParseLogs,
	"run-correlation": RunCorrelation,
	"runcorrelation":  RunCorrelation,
	"bootstrap":       Bootstrap,
	"reset":           Reset,
}

// ParseAction resolves a trigger name such as "fetch-intel" or "fetchIntel".
func ParseAction(name string) (Action, error) {
	a, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// BusyLabel is shown on every trigger while a is in flight.
func (a Action) BusyLabel() string {
	switch a {
	case FetchIntel:
		return "Fetching…"
	case ParseLogs:
		return "Parsing…"
	case RunCorrelation:
		return "Correlating…"
	case Bootstrap:
		return "Loading…"
	case Reset:
		return "Resetting…"
	}
	return ""
}

func (a Action) progress() string {
	switch a {
	case FetchIntel:
		return "Contacting threat feeds (demo)..."
	case ParseLogs:
		return "Parsing SSH and Apache logs..."
	case RunCorrelation:
		return "Running correlation and refreshing analytics..."
	case Bootstrap:
		return "Loading curated SOC telemetry..."
	case Reset:
		return "Restoring curated SOC telemetry..."
	}
	return ""
}

func (a Action) failure(err error) string {
	switch a {
	case FetchIntel:
		return "Threat intel fetch failed: " + err.Error()
	case ParseLogs:
		return "Log parsing failed: " + err.Error()
	case RunCorrelation:
		return "Correlation failed: " + err.Error()
	case Bootstrap:
		return "Failed to initialise demo data: " + err.Error()
	case Reset:
		return "Reset failed: " + err.Error()
	}
	return err.Error()
}
