package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/loykin/parley/internal/agent"
	"github.com/loykin/parley/internal/env"
	"github.com/loykin/parley/internal/journal"
	"github.com/loykin/parley/internal/logger"
	"github.com/loykin/parley/internal/metrics"
	"github.com/loykin/parley/internal/script"
)

// DefaultGracePeriod is the post-spawn wait before a Starting record is
// promoted to Running. Some spawn failures surface asynchronously; the
// delay turns an otherwise invisible fast failure into an observable
// terminal state before the caller sees success.
const DefaultGracePeriod = time.Second

// Result reports a completed launch attempt.
type Result struct {
	PID      int    `json:"pid"`
	LaunchID string `json:"launch_id"`
}

// Launcher turns a generated artifact into a running detached process and
// keeps the registry in sync with the process's lifecycle.
type Launcher struct {
	reg         *agent.Registry
	envM        *env.Env
	log         *slog.Logger
	sinks       []journal.Sink
	GracePeriod time.Duration
	LogRotation logger.Config // rotation parameters applied to launch logs
}

func New(reg *agent.Registry, envM *env.Env, log *slog.Logger) *Launcher {
	if envM == nil {
		envM = env.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{reg: reg, envM: envM, log: log, GracePeriod: DefaultGracePeriod}
}

// SetJournalSinks configures destinations for launch/exit events.
func (l *Launcher) SetJournalSinks(sinks ...journal.Sink) {
	l.sinks = append([]journal.Sink(nil), sinks...)
}

func (l *Launcher) journal(e journal.Event) {
	e.OccurredAt = time.Now().UTC()
	for _, s := range l.sinks {
		if err := s.Send(context.Background(), e); err != nil {
			l.log.Warn("journal sink failed", "room", e.Room, "error", err)
		}
	}
}

// Launch spawns the artifact as a detached child. The child's stdout and
// stderr go to the artifact's log files and are mirrored into the
// orchestrator's diagnostic log. The call blocks for the grace period;
// there is no mid-launch cancellation once spawn has been issued.
func (l *Launcher) Launch(a script.Artifact, cfg script.LaunchConfig) (Result, error) {
	outW, errW, err := logger.Config{
		StdoutPath: a.StdoutPath,
		StderrPath: a.StderrPath,
		MaxSizeMB:  l.LogRotation.MaxSizeMB,
		MaxBackups: l.LogRotation.MaxBackups,
		MaxAgeDays: l.LogRotation.MaxAgeDays,
		Compress:   l.LogRotation.Compress,
	}.Writers(a.Room)
	if err != nil {
		return Result{}, fmt.Errorf("launcher: open log writers: %w", err)
	}

	cmd := exec.Command(a.ScriptPath) // #nosec G204 -- path produced by the script generator
	cmd.Env = l.envM.Merge(cfg.Env())
	cmd.SysProcAttr = detachedSysProcAttr()
	cmd.Stdout = io.MultiWriter(outW, &mirrorWriter{log: l.log, room: a.Room, stream: "stdout"})
	cmd.Stderr = io.MultiWriter(errW, &mirrorWriter{log: l.log, room: a.Room, stream: "stderr"})

	if err := cmd.Start(); err != nil {
		closeWriters(outW, errW)
		detail := fmt.Sprintf("spawn: %v", err)
		_ = l.reg.Upsert(a.Room, agent.Record{
			Status:      agent.StatusError,
			StartedAt:   time.Now(),
			ErrorDetail: detail,
			LaunchID:    a.LaunchID,
		})
		metrics.IncSpawnError(a.Room)
		l.journal(journal.Event{Type: journal.EventError, Room: a.Room, LaunchID: a.LaunchID, ExitCode: -1, Detail: detail})
		l.log.Error("agent spawn failed", "room", a.Room, "script", a.ScriptPath, "error", err)
		return Result{}, fmt.Errorf("launcher: spawn %s: %w", a.Room, err)
	}

	pid := cmd.Process.Pid
	if err := l.reg.Upsert(a.Room, agent.Record{
		Status:    agent.StatusStarting,
		PID:       pid,
		StartedAt: time.Now(),
		LaunchID:  a.LaunchID,
	}); err != nil {
		// cannot track the child; best effort terminate it again
		_ = Terminate(pid)
		closeWriters(outW, errW)
		return Result{}, err
	}
	l.log.Info("agent spawned", "room", a.Room, "pid", pid, "launch_id", a.LaunchID)
	metrics.IncStart(a.Room)
	l.journal(journal.Event{Type: journal.EventLaunch, Room: a.Room, LaunchID: a.LaunchID, PID: pid, ExitCode: -1})

	go l.waitAndHandleExit(cmd, a, outW, errW)

	// Grace period: spawn failures on some platforms surface asynchronously,
	// so give the exit handler a chance to flip the record before promotion.
	time.Sleep(l.gracePeriod())
	metrics.ObserveGraceWait(l.gracePeriod().Seconds())

	promoted := false
	var detail string
	found := l.reg.Update(a.Room, func(rec *agent.Record) {
		if rec.LaunchID != a.LaunchID {
			detail = "superseded by a newer launch"
			return
		}
		switch rec.Status {
		case agent.StatusStarting:
			if err := rec.Transition(agent.StatusRunning); err == nil {
				promoted = true
			}
		case agent.StatusError:
			detail = rec.ErrorDetail
		case agent.StatusRunning:
			promoted = true
		}
	})
	if promoted {
		l.log.Info("agent running", "room", a.Room, "pid", pid)
		return Result{PID: pid, LaunchID: a.LaunchID}, nil
	}
	if !found {
		detail = "process exited during startup"
	}
	return Result{PID: pid, LaunchID: a.LaunchID}, errors.New("launcher: " + a.Room + ": " + detail)
}

func (l *Launcher) gracePeriod() time.Duration {
	if l.GracePeriod > 0 {
		return l.GracePeriod
	}
	return DefaultGracePeriod
}

// waitAndHandleExit reaps the child and reconciles the registry. A child
// that dies before promotion leaves an Error record behind; one that dies
// after promotion has its record removed so the room can be relaunched.
// Both paths journal the exit code for post-mortem use before any record
// is deleted, and close the launch log writers.
func (l *Launcher) waitAndHandleExit(cmd *exec.Cmd, a script.Artifact, outW, errW io.WriteCloser) {
	err := cmd.Wait()
	closeWriters(outW, errW)

	code := 0
	detail := ""
	if err != nil {
		detail = err.Error()
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode() // -1 when the child was signaled
		} else {
			code = -1
		}
	}
	pid := cmd.Process.Pid
	l.log.Info("agent exited", "room", a.Room, "pid", pid, "exit_code", code, "detail", detail)

	failedEarly := false
	l.reg.Update(a.Room, func(rec *agent.Record) {
		if rec.LaunchID != a.LaunchID {
			return
		}
		if rec.Status == agent.StatusStarting {
			if terr := rec.Transition(agent.StatusError); terr == nil {
				rec.ErrorDetail = exitDetail(code, detail)
				failedEarly = true
			}
		}
	})
	if failedEarly {
		metrics.IncSpawnError(a.Room)
		l.journal(journal.Event{Type: journal.EventError, Room: a.Room, LaunchID: a.LaunchID, PID: pid, ExitCode: code, Detail: exitDetail(code, detail)})
		return
	}

	l.reg.CompareAndRemove(a.Room, a.LaunchID)
	metrics.IncStop(a.Room)
	l.journal(journal.Event{Type: journal.EventExit, Room: a.Room, LaunchID: a.LaunchID, PID: pid, ExitCode: code, Detail: detail})
}

func exitDetail(code int, detail string) string {
	if detail == "" {
		return fmt.Sprintf("exited with code %d during startup", code)
	}
	return "exited during startup: " + detail
}

func closeWriters(ws ...io.WriteCloser) {
	for _, w := range ws {
		if w != nil {
			_ = w.Close()
		}
	}
}

// mirrorWriter forwards child output lines into the diagnostic log for
// operational visibility alongside the per-launch files.
type mirrorWriter struct {
	log    *slog.Logger
	room   string
	stream string
	buf    bytes.Buffer
}

func (m *mirrorWriter) Write(p []byte) (int, error) {
	m.buf.Write(p)
	for {
		line, err := m.buf.ReadString('\n')
		if err != nil {
			// partial line stays buffered for the next write
			m.buf.WriteString(line)
			break
		}
		if trimmed := bytes.TrimRight([]byte(line), "\r\n"); len(trimmed) > 0 {
			m.log.Debug("agent output", "room", m.room, "stream", m.stream, "line", string(trimmed))
		}
	}
	return len(p), nil
}
