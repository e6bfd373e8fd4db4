package client

// StartResult reports the outcome of a start request.
type StartResult struct {
	Success        bool   `json:"success"`
	AlreadyRunning bool   `json:"already_running,omitempty"`
	PID            int    `json:"pid,omitempty"`
	Error          string `json:"error,omitempty"`
}

// StopResult reports whether a tracked agent was signalled.
type StopResult struct {
	Stopped bool `json:"stopped"`
}

// AgentStatus is the orchestrator's local view of one room.
type AgentStatus struct {
	Room          string `json:"room"`
	Running       bool   `json:"running"`
	PID           int    `json:"pid,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
	UptimeSeconds *int64 `json:"uptime_seconds,omitempty"`
}

// FullAgentStatus merges the local view with the conferencing server's
// presence signal. AgentConfirmedInRoom is nil when the presence check
// could not be completed.
type FullAgentStatus struct {
	Room                 string `json:"room"`
	LocalProcessRunning  bool   `json:"local_process_running"`
	AgentConfirmedInRoom *bool  `json:"agent_confirmed_in_room,omitempty"`
	Presence             string `json:"presence"`
	PID                  int    `json:"pid,omitempty"`
	Status               string `json:"status,omitempty"`
	Error                string `json:"error,omitempty"`
	UptimeSeconds        *int64 `json:"uptime_seconds,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
