package agent

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of one room's agent process.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusError    Status = "error"
)

// transitions is the allowed state machine:
// starting -> running (grace period elapsed without failure)
// starting -> error   (spawn failed or the child died before promotion)
// A running record never transitions; it is removed when the process exits.
var transitions = map[Status][]Status{
	StatusStarting: {StatusRunning, StatusError},
	StatusRunning:  {},
	StatusError:    {},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Record tracks one agent process for one room. At most one record exists
// per room at any time; the Registry owns all records.
type Record struct {
	RoomName    string    `json:"room_name"`
	Status      Status    `json:"status"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	LaunchID    string    `json:"launch_id,omitempty"`
}

// Transition applies a state change, enforcing the transition table.
func (r *Record) Transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("illegal transition %s -> %s for room %s", r.Status, to, r.RoomName)
	}
	r.Status = to
	return nil
}

// Uptime returns the whole seconds elapsed since the process started.
func (r *Record) Uptime(now time.Time) int64 {
	if r.StartedAt.IsZero() {
		return 0
	}
	d := now.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}
