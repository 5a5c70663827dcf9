package runner

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMarkerTimeout is wrapped by every required-marker timeout
	ErrMarkerTimeout = errors.New("marker timeout")
	// ErrMarkerNotFound means a one-shot marker click found nothing
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrScenarioUnrecognized means recognition failed and no fallback applies
	ErrScenarioUnrecognized = errors.New("scenario unrecognized")
	// ErrScriptLoad means the action script for a scenario could not be used
	ErrScriptLoad = errors.New("script load failed")
	// ErrNoScripts means the fallback found no script to pick from
	ErrNoScripts = errors.New("no scripts available")
	// ErrUnknownMode is returned for a mode name outside the registry
	ErrUnknownMode = errors.New("unknown mode")
)

// MarkerTimeoutError records which required marker never appeared
type MarkerTimeoutError struct {
	Marker  string
	Timeout time.Duration
}

func (e *MarkerTimeoutError) Error() string {
	return fmt.Sprintf("waiting for %s timed out after %s", e.Marker, e.Timeout)
}

func (e *MarkerTimeoutError) Is(target error) bool {
	return target == ErrMarkerTimeout
}
