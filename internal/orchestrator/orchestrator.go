package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/parley/internal/agent"
	"github.com/loykin/parley/internal/launcher"
	"github.com/loykin/parley/internal/metrics"
	"github.com/loykin/parley/internal/presence"
	"github.com/loykin/parley/internal/roomdir"
	"github.com/loykin/parley/internal/script"
)

// Generator abstracts artifact generation for the orchestrator.
type Generator interface {
	Generate(room string) (script.Artifact, error)
}

// ProcessLauncher abstracts the spawn step.
type ProcessLauncher interface {
	Launch(a script.Artifact, cfg script.LaunchConfig) (launcher.Result, error)
}

// Options wires an Orchestrator. Registry, Generator, Launcher and
// Directory are required.
type Options struct {
	Registry       *agent.Registry
	Generator      Generator
	Launcher       ProcessLauncher
	Directory      roomdir.Directory
	Checker        *presence.Checker
	LaunchTemplate script.LaunchConfig // per-launch config; Room is filled in per call
	RoomDefaults   roomdir.RoomOptions
	Logger         *slog.Logger
}

// Orchestrator is the control-plane facade: it starts and stops agent
// processes per room and answers status queries. Errors local to one
// room's launch never affect other rooms' records.
type Orchestrator struct {
	reg          *agent.Registry
	gen          Generator
	launch       ProcessLauncher
	dir          roomdir.Directory
	checker      *presence.Checker
	template     script.LaunchConfig
	roomDefaults roomdir.RoomOptions
	log          *slog.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil || opts.Generator == nil || opts.Launcher == nil || opts.Directory == nil {
		return nil, fmt.Errorf("orchestrator: registry, generator, launcher and directory are required")
	}
	if opts.Checker == nil {
		opts.Checker = presence.NewChecker(opts.Directory)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		reg:          opts.Registry,
		gen:          opts.Generator,
		launch:       opts.Launcher,
		dir:          opts.Directory,
		checker:      opts.Checker,
		template:     opts.LaunchTemplate,
		roomDefaults: opts.RoomDefaults,
		log:          opts.Logger,
	}, nil
}

// StartResult reports a start request. AlreadyRunning means no new process
// was spawned.
type StartResult struct {
	Success        bool   `json:"success"`
	AlreadyRunning bool   `json:"already_running,omitempty"`
	PID            int    `json:"pid,omitempty"`
	Error          string `json:"error,omitempty"`
}

// StartAgent launches an agent for the room. It is idempotent: a room with
// a live record returns alreadyRunning without spawning. The room's lock is
// held across the whole check-generate-spawn sequence so two concurrent
// starts cannot both spawn.
func (o *Orchestrator) StartAgent(ctx context.Context, room string) (StartResult, error) {
	if room == "" {
		return fail("room name must not be empty")
	}
	release := o.reg.LockRoom(room)
	defer release()

	if o.reg.IsRunning(room) {
		rec, _ := o.reg.Get(room)
		return StartResult{Success: true, AlreadyRunning: true, PID: rec.PID}, nil
	}

	exists, err := o.dir.RoomExists(ctx, room)
	if err != nil {
		return fail(fmt.Sprintf("room lookup failed: %v", err))
	}
	if !exists {
		if err := o.dir.CreateRoom(ctx, room, o.roomDefaults); err != nil {
			return fail(fmt.Sprintf("room creation failed: %v", err))
		}
		o.log.Info("room created", "room", room)
	}

	artifact, err := o.gen.Generate(room)
	if err != nil {
		return fail(err.Error())
	}

	cfg := o.template
	cfg.Room = room
	res, err := o.launch.Launch(artifact, cfg)
	o.updateRunningGauge()
	if err != nil {
		return StartResult{Success: false, PID: res.PID, Error: err.Error()}, err
	}
	return StartResult{Success: true, PID: res.PID}, nil
}

func fail(msg string) (StartResult, error) {
	return StartResult{Success: false, Error: msg}, fmt.Errorf("%s", msg)
}

// StopAgent signals the room's tracked process. On successful signal
// delivery the record is removed immediately rather than waiting for the
// exit event; on failure the state is left untouched and false is
// returned. An untracked room returns false without touching the registry.
func (o *Orchestrator) StopAgent(room string) bool {
	rec, ok := o.reg.Get(room)
	if !ok {
		return false
	}
	if rec.PID > 0 {
		if err := launcher.Terminate(rec.PID); err != nil {
			o.log.Warn("agent termination failed", "room", room, "pid", rec.PID, "error", err)
			return false
		}
	}
	o.reg.Remove(room)
	o.updateRunningGauge()
	o.log.Info("agent stopped", "room", room, "pid", rec.PID)
	return true
}

// GetLocalStatus reports the registry's view only.
func (o *Orchestrator) GetLocalStatus(room string) LocalStatus {
	rec, ok := o.reg.Get(room)
	return localStatusFromRecord(room, rec, ok, time.Now())
}

// ListLocalStatus reports all tracked rooms.
func (o *Orchestrator) ListLocalStatus() []LocalStatus {
	recs := o.reg.List()
	out := make([]LocalStatus, 0, len(recs))
	now := time.Now()
	for _, rec := range recs {
		out = append(out, localStatusFromRecord(rec.RoomName, rec, true, now))
	}
	return out
}

// GetFullStatus combines the local record with the external presence
// observation. A failed presence query is reported as unknown, never as a
// fabricated negative.
func (o *Orchestrator) GetFullStatus(ctx context.Context, room string) FullStatus {
	local := o.GetLocalStatus(room)
	res, err := o.checker.Check(ctx, room)
	if err != nil {
		o.log.Warn("presence check failed", "room", room, "error", err)
	}
	return FullStatus{
		Room:                 room,
		LocalProcessRunning:  local.Running,
		AgentConfirmedInRoom: res.Confirmed(),
		Presence:             res,
		PID:                  local.PID,
		Status:               local.Status,
		Error:                local.Error,
		UptimeSeconds:        local.UptimeSeconds,
	}
}

// DebugRecords exposes the raw registry records, including launch IDs and
// retained error records, for troubleshooting.
func (o *Orchestrator) DebugRecords() []agent.Record {
	return o.reg.List()
}

func (o *Orchestrator) updateRunningGauge() {
	metrics.SetRunningAgents(len(o.reg.List()))
}
