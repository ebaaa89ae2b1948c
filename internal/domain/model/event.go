package model

import "encoding/json"

// EventType classifies entries in a run's event log.
type EventType string

const (
	EventLog        EventType = "log"
	EventScreenshot EventType = "screenshot"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// Terminal reports whether the event type closes a run's event stream.
// Once a terminal event is appended no further events follow for that run.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// RunEvent is one entry in a run's append-only event log. ID is the log
// entry id, strictly increasing within a run, and doubles as the resumption
// cursor for stream consumers.
type RunEvent struct {
	ID        string          `json:"-"`
	Type      EventType       `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
