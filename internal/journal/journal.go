package journal

import (
	"context"
	"time"
)

// EventType defines the kind of launch lifecycle event.
type EventType string

const (
	EventLaunch EventType = "launch"
	EventExit   EventType = "exit"
	EventError  EventType = "error"
)

// Event is one entry in the append-only launch journal. Exit events carry
// the exit code (or signal description in Detail) so a crash remains
// diagnosable after the registry record is gone.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Room       string    `json:"room"`
	LaunchID   string    `json:"launch_id"`
	PID        int       `json:"pid"`
	ExitCode   int       `json:"exit_code"` // -1 when not applicable
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for journal events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
