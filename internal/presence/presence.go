package presence

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/loykin/parley/internal/metrics"
	"github.com/loykin/parley/internal/roomdir"
)

// Result is the outcome of a presence check. A failed query yields
// Unknown, which callers must keep distinct from a confirmed Absent.
type Result string

const (
	Present Result = "present"
	Absent  Result = "absent"
	Unknown Result = "unknown"
)

// Confirmed returns a pointer suitable for JSON views: nil when the check
// could not be completed.
func (r Result) Confirmed() *bool {
	switch r {
	case Present:
		v := true
		return &v
	case Absent:
		v := false
		return &v
	default:
		return nil
	}
}

// identityMarkers are matched against participant identities when no
// structured agent flag is available. Substring matching is inherently
// fragile and is a best-effort secondary signal only.
var identityMarkers = []string{"agent-", "-agent", "ai-assistant", "bot-"}

// Checker infers whether an agent participant is present in a room.
type Checker struct {
	dir roomdir.Directory
}

func NewChecker(dir roomdir.Directory) *Checker {
	return &Checker{dir: dir}
}

// Check queries the conferencing service. A room unknown to the service
// yields Absent immediately; a failed query yields Unknown together with
// the underlying error.
func (c *Checker) Check(ctx context.Context, room string) (Result, error) {
	exists, err := c.dir.RoomExists(ctx, room)
	if err != nil {
		metrics.IncPresenceCheck(string(Unknown))
		return Unknown, err
	}
	if !exists {
		metrics.IncPresenceCheck(string(Absent))
		return Absent, nil
	}
	parts, err := c.dir.ListParticipants(ctx, room)
	if err != nil {
		metrics.IncPresenceCheck(string(Unknown))
		return Unknown, err
	}
	for _, p := range parts {
		if isAgent(p) {
			metrics.IncPresenceCheck(string(Present))
			return Present, nil
		}
	}
	metrics.IncPresenceCheck(string(Absent))
	return Absent, nil
}

// isAgent prefers the structured participant kind, then a metadata role
// flag, and only then falls back to identity heuristics.
func isAgent(p roomdir.Participant) bool {
	if strings.EqualFold(p.Kind, "agent") {
		return true
	}
	if p.Metadata != "" {
		var meta struct {
			Role    string `json:"role"`
			IsAgent bool   `json:"is_agent"`
		}
		if err := json.Unmarshal([]byte(p.Metadata), &meta); err == nil {
			if meta.IsAgent || strings.EqualFold(meta.Role, "agent") {
				return true
			}
		}
	}
	id := strings.ToLower(p.Identity)
	for _, m := range identityMarkers {
		if strings.Contains(id, m) {
			return true
		}
	}
	return false
}
