package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "parley.toml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFull(t *testing.T) {
	p := writeTemp(t, `
env = ["FOO=bar"]

[server]
listen = ":9090"
base_path = "/parley"

[log]
level = "debug"
file = "/tmp/parley.log"

[conference]
url = "https://conf.example.com"
api_key = "key"
api_secret = "secret"

[agent]
worker_command = "python3 agent.py"
model = "gpt-realtime"
voice = "alloy"
instructions = "be helpful"

[launcher]
scratch_dir = "/tmp/agents"
grace_period = "1500ms"

[launch_log]
dir = "/var/log/parley"
max_size_mb = 5
max_backups = 2

[room]
empty_timeout_sec = 300
max_participants = 10

[journal]
dsns = ["sqlite:///tmp/parley.db"]
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Listen != ":9090" || c.Server.BasePath != "/parley" {
		t.Fatalf("server section mismatch: %+v", c.Server)
	}
	if c.Conference.URL != "https://conf.example.com" {
		t.Fatalf("conference url: %q", c.Conference.URL)
	}
	if c.Agent.WorkerCommand != "python3 agent.py" || c.Agent.Voice != "alloy" {
		t.Fatalf("agent section mismatch: %+v", c.Agent)
	}
	if c.Launcher.GracePeriod != 1500*time.Millisecond {
		t.Fatalf("grace period: %v", c.Launcher.GracePeriod)
	}
	if c.LaunchLog.Dir != "/var/log/parley" || c.LaunchLog.MaxSizeMB != 5 {
		t.Fatalf("launch log section mismatch: %+v", c.LaunchLog)
	}
	if c.Room.EmptyTimeoutSec != 300 || c.Room.MaxParticipants != 10 {
		t.Fatalf("room section mismatch: %+v", c.Room)
	}
	if len(c.Journal.DSNs) != 1 || c.Journal.DSNs[0] != "sqlite:///tmp/parley.db" {
		t.Fatalf("journal dsns: %v", c.Journal.DSNs)
	}
	if len(c.Env) != 1 || c.Env[0] != "FOO=bar" {
		t.Fatalf("env: %v", c.Env)
	}
}

func TestLoadDefaults(t *testing.T) {
	p := writeTemp(t, `
[conference]
url = "https://conf.example.com"
api_key = "key"
api_secret = "secret"

[agent]
worker_command = "worker"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Listen != ":8080" {
		t.Fatalf("default listen: %q", c.Server.Listen)
	}
	if c.Server.BasePath != "/api" {
		t.Fatalf("default base path: %q", c.Server.BasePath)
	}
	if c.Launcher.GracePeriod != time.Second {
		t.Fatalf("default grace period: %v", c.Launcher.GracePeriod)
	}
	if c.Launcher.ScratchDir == "" {
		t.Fatalf("default scratch dir empty")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	p := writeTemp(t, `
[conference]
url = "https://conf.example.com"
`)
	_, err := Load(p)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, key := range []string{"conference.api_key", "conference.api_secret", "agent.worker_command"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q missing key %s", err, key)
		}
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	p := writeTemp(t, "not = [valid toml")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for malformed toml")
	}
}
