package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// LaunchConfig is the typed configuration for one agent launch. Credentials
// never appear in the generated script text; the launcher injects them into
// the child's environment from this struct.
type LaunchConfig struct {
	Room         string
	ServerURL    string
	APIKey       string
	APISecret    string
	Model        string
	Voice        string
	Instructions string
}

// Env returns the environment variables carrying connection parameters and
// credentials for the worker process.
func (c LaunchConfig) Env() map[string]string {
	m := map[string]string{
		"PARLEY_ROOM":       c.Room,
		"PARLEY_SERVER_URL": c.ServerURL,
		"PARLEY_API_KEY":    c.APIKey,
		"PARLEY_API_SECRET": c.APISecret,
	}
	if c.Model != "" {
		m["PARLEY_MODEL"] = c.Model
	}
	if c.Voice != "" {
		m["PARLEY_VOICE"] = c.Voice
	}
	if c.Instructions != "" {
		m["PARLEY_INSTRUCTIONS"] = c.Instructions
	}
	return m
}

// Artifact is one generated worker script plus its per-launch log paths.
// Artifacts are write-once; nothing reads them back programmatically.
type Artifact struct {
	Room       string
	LaunchID   string
	ScriptPath string
	StdoutPath string
	StderrPath string
	CreatedAt  time.Time
}

// Generator renders worker scripts into a scratch directory. The directory
// is created on first use. Generation failures surface directly; a write
// failure indicates an environment problem the caller must resolve.
type Generator struct {
	ScratchDir    string
	WorkerCommand string // command line prefix for the agent worker
}

// scriptTemplate deliberately contains no credentials; the worker reads
// them from PARLEY_* environment variables set at spawn time.
var scriptTemplate = template.Must(template.New("worker").Parse(`#!/bin/sh
# agent worker for room {{.Room}} (launch {{.LaunchID}})
# connection parameters and credentials come from the environment
exec {{.WorkerCommand}} --room {{.Room}}
`))

func NewGenerator(scratchDir, workerCommand string) *Generator {
	return &Generator{ScratchDir: scratchDir, WorkerCommand: workerCommand}
}

// Generate writes a new executable script for the room and returns the
// artifact. File names embed the room, a timestamp, and a launch id so
// repeated launches for the same room never collide on disk.
func (g *Generator) Generate(room string) (Artifact, error) {
	if !safeRoomName(room) {
		return Artifact{}, fmt.Errorf("script: unsafe room name %q", room)
	}
	if strings.TrimSpace(g.WorkerCommand) == "" {
		return Artifact{}, fmt.Errorf("script: worker command not configured")
	}
	if err := os.MkdirAll(g.ScratchDir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("script: create scratch dir: %w", err)
	}
	now := time.Now()
	launchID := uuid.NewString()
	stem := fmt.Sprintf("%s-%s-%s", room, now.UTC().Format("20060102T150405"), launchID[:8])

	a := Artifact{
		Room:       room,
		LaunchID:   launchID,
		ScriptPath: filepath.Join(g.ScratchDir, stem+".sh"),
		StdoutPath: filepath.Join(g.ScratchDir, stem+".stdout.log"),
		StderrPath: filepath.Join(g.ScratchDir, stem+".stderr.log"),
		CreatedAt:  now,
	}

	f, err := os.OpenFile(a.ScriptPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o700) // #nosec G302 -- script must be executable
	if err != nil {
		return Artifact{}, fmt.Errorf("script: write artifact: %w", err)
	}
	data := struct {
		Room          string
		LaunchID      string
		WorkerCommand string
	}{Room: room, LaunchID: launchID, WorkerCommand: g.WorkerCommand}
	if err := scriptTemplate.Execute(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(a.ScriptPath)
		return Artifact{}, fmt.Errorf("script: render artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("script: close artifact: %w", err)
	}
	return a, nil
}

// safeRoomName rejects names that could traverse or escape the scratch
// directory when used in file names.
func safeRoomName(s string) bool {
	if s == "" || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}
