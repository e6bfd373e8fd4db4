package roomdir

import "context"

// Participant is one entry in a room's participant list as reported by the
// conferencing service.
type Participant struct {
	Identity string `json:"identity"`
	Kind     string `json:"kind,omitempty"`     // structured participant kind, e.g. "agent"
	Metadata string `json:"metadata,omitempty"` // opaque JSON blob set by the joining client
}

// RoomOptions carries creation parameters; the orchestrator passes them
// through without interpretation.
type RoomOptions struct {
	EmptyTimeoutSec int `json:"empty_timeout_sec,omitempty"`
	MaxParticipants int `json:"max_participants,omitempty"`
}

// Directory is the orchestrator's view of the external conferencing
// service's room API. Failures propagate as errors; callers must not treat
// an error as a definite yes or no.
type Directory interface {
	RoomExists(ctx context.Context, name string) (bool, error)
	CreateRoom(ctx context.Context, name string, opts RoomOptions) error
	ListParticipants(ctx context.Context, room string) ([]Participant, error)
}
