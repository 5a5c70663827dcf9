package database

import (
	"fmt"
	"time"
)

// Session statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Round outcomes
const (
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
	OutcomeFailed      = "failed"
)

// SessionRecord is one automation run
type SessionRecord struct {
	ID          string
	Mode        string
	WindowTitle string
	StartedAt   time.Time
	EndedAt     *time.Time
	Status      string
	LoopsDone   int
	StopReason  string
}

// Duration returns how long the session ran, up to now when still open
func (s SessionRecord) Duration() time.Duration {
	end := time.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt)
}

// String renders one history line
func (s SessionRecord) String() string {
	line := fmt.Sprintf("%s  %-10s %-9s loops=%d  %s", s.StartedAt.Format("2006-01-02 15:04:05"), s.Mode, s.Status, s.LoopsDone, s.Duration().Round(time.Second))
	if s.StopReason != "" {
		line += "  (" + s.StopReason + ")"
	}
	return line
}

// RoundRecord is one scenario played within a session
type RoundRecord struct {
	ID         int64
	SessionID  string
	Round      int
	Scenario   string
	Recognized bool // false when the script was a fallback pick
	TopScore   float64
	Script     string
	Outcome    string
	RecordedAt time.Time
}
