package workspace

import "time"

// EventType marks a phase of a workspace operation's lifecycle.
type EventType string

const (
	EventOpStart   EventType = "op_start"
	EventOpSuccess EventType = "op_success"
	EventOpError   EventType = "op_error"
)

// Event is one lifecycle notification. The original backend pushed these to
// the user's console; here any subscriber can receive them.
type Event struct {
	Type      EventType
	OpID      string // operation uuid
	Op        string // save, merge, apply, delete
	Target    string
	Timestamp time.Time
	Message   string
}

// Observer receives operation lifecycle events.
type Observer interface {
	OnEvent(event Event)
}
