package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateWritesExecutableScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	g := NewGenerator(dir, "parley-worker --verbose")
	a, err := g.Generate("study-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	info, err := os.Stat(a.ScriptPath)
	if err != nil {
		t.Fatalf("script missing: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("script not executable: %v", info.Mode())
	}
	body, _ := os.ReadFile(a.ScriptPath)
	s := string(body)
	if !strings.HasPrefix(s, "#!/bin/sh") {
		t.Fatalf("missing shebang: %q", s)
	}
	if !strings.Contains(s, "parley-worker --verbose --room study-1") {
		t.Fatalf("worker command not rendered: %q", s)
	}
	if a.LaunchID == "" || a.Room != "study-1" {
		t.Fatalf("artifact metadata: %+v", a)
	}
}

func TestGenerateNeverEmbedsSecrets(t *testing.T) {
	cfg := LaunchConfig{
		Room:      "study-1",
		ServerURL: "wss://conf.example.com",
		APIKey:    "APIKEYVALUE",
		APISecret: "SUPERSECRETVALUE",
	}
	g := NewGenerator(t.TempDir(), "parley-worker")
	a, err := g.Generate(cfg.Room)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	body, _ := os.ReadFile(a.ScriptPath)
	for _, secret := range []string{cfg.APIKey, cfg.APISecret} {
		if strings.Contains(string(body), secret) {
			t.Fatalf("script contains credential %q", secret)
		}
	}
	env := cfg.Env()
	if env["PARLEY_API_SECRET"] != "SUPERSECRETVALUE" {
		t.Fatalf("secret must travel via env: %v", env)
	}
	if env["PARLEY_ROOM"] != "study-1" {
		t.Fatalf("room env missing: %v", env)
	}
}

func TestGenerateUniquePathsPerLaunch(t *testing.T) {
	g := NewGenerator(t.TempDir(), "parley-worker")
	a1, err := g.Generate("room-a")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	a2, err := g.Generate("room-a")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a1.ScriptPath == a2.ScriptPath || a1.StdoutPath == a2.StdoutPath {
		t.Fatalf("repeated launches collide: %s vs %s", a1.ScriptPath, a2.ScriptPath)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	g := NewGenerator(t.TempDir(), "parley-worker")
	if _, err := g.Generate("../escape"); err == nil {
		t.Fatalf("expected error for traversal name")
	}
	if _, err := g.Generate("has space"); err == nil {
		t.Fatalf("expected error for unsafe name")
	}
	g = NewGenerator(t.TempDir(), "  ")
	if _, err := g.Generate("ok"); err == nil {
		t.Fatalf("expected error for empty worker command")
	}
}

func TestGenerateSurfacesFilesystemError(t *testing.T) {
	base := t.TempDir()
	blocked := filepath.Join(base, "file")
	if err := os.WriteFile(blocked, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	// scratch dir path points at a regular file; MkdirAll must fail
	g := NewGenerator(filepath.Join(blocked, "scratch"), "parley-worker")
	if _, err := g.Generate("room"); err == nil {
		t.Fatalf("expected filesystem error to surface")
	}
}
