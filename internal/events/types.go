package events

import "time"

// Type names a session event
type Type string

const (
	SessionStarted Type = "session.started"
	RoundFinished  Type = "round.finished"
	SessionEnded   Type = "session.ended"
)

// Event is one notification from a running session
type Event struct {
	Type      Type
	SessionID string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Handler processes an event
type Handler func(Event)

// SubscriptionID identifies a subscription
type SubscriptionID int64

// Bus is a publish/subscribe channel for session events
type Bus interface {
	Subscribe(t Type, h Handler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(e Event)
	Stop()
}

// NewSessionStarted describes a session that just began
func NewSessionStarted(sessionID, mode, window string) Event {
	return Event{
		Type:      SessionStarted,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"mode":   mode,
			"window": window,
		},
	}
}

// NewRoundFinished describes one played scenario
func NewRoundFinished(sessionID string, round int, scenario string, recognized bool, outcome string) Event {
	return Event{
		Type:      RoundFinished,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"round":      round,
			"scenario":   scenario,
			"recognized": recognized,
			"outcome":    outcome,
		},
	}
}

// NewSessionEnded describes how a session finished
func NewSessionEnded(sessionID, status string, loops int, reason string) Event {
	return Event{
		Type:      SessionEnded,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"status": status,
			"loops":  loops,
			"reason": reason,
		},
	}
}

// String returns a data field as a string, or ""
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Int returns a data field as an int, or 0
func (e Event) Int(key string) int {
	n, _ := e.Data[key].(int)
	return n
}

// Bool returns a data field as a bool, or false
func (e Event) Bool(key string) bool {
	b, _ := e.Data[key].(bool)
	return b
}
