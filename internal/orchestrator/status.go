package orchestrator

import (
	"time"

	"github.com/loykin/parley/internal/agent"
	"github.com/loykin/parley/internal/presence"
)

// LocalStatus is the registry-only view of one room.
type LocalStatus struct {
	Room          string       `json:"room"`
	Running       bool         `json:"running"`
	PID           int          `json:"pid,omitempty"`
	Status        agent.Status `json:"status,omitempty"`
	Error         string       `json:"error,omitempty"`
	UptimeSeconds *int64       `json:"uptime_seconds,omitempty"`
}

// FullStatus merges the local process record with the externally observed
// presence signal. The two observations are independent and may disagree;
// both are reported verbatim and no arbitration is performed.
type FullStatus struct {
	Room                 string          `json:"room"`
	LocalProcessRunning  bool            `json:"local_process_running"`
	AgentConfirmedInRoom *bool           `json:"agent_confirmed_in_room,omitempty"` // nil when the check could not be completed
	Presence             presence.Result `json:"presence"`
	PID                  int             `json:"pid,omitempty"`
	Status               agent.Status    `json:"status,omitempty"`
	Error                string          `json:"error,omitempty"`
	UptimeSeconds        *int64          `json:"uptime_seconds,omitempty"`
}

func localStatusFromRecord(room string, rec agent.Record, found bool, now time.Time) LocalStatus {
	st := LocalStatus{Room: room}
	if !found {
		return st
	}
	st.Running = rec.Status != agent.StatusError
	st.PID = rec.PID
	st.Status = rec.Status
	st.Error = rec.ErrorDetail
	up := rec.Uptime(now)
	st.UptimeSeconds = &up
	return st
}
