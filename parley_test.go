package parley

import (
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	c := &Config{}
	c.Conference.URL = "https://conf.example.com"
	c.Conference.APIKey = "key"
	c.Conference.APISecret = "secret"
	c.Agent.WorkerCommand = "worker"
	c.Launcher.ScratchDir = t.TempDir()
	c.Launcher.GracePeriod = 50 * time.Millisecond
	c.Journal.DSNs = []string{"sqlite://" + filepath.Join(t.TempDir(), "journal.db")}
	return c
}

func TestNewWiresOrchestrator(t *testing.T) {
	o, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = o.Close() }()

	if got := o.ListLocalStatus(); len(got) != 0 {
		t.Fatalf("fresh orchestrator should track nothing, got %v", got)
	}
	if o.StopAgent("untracked") {
		t.Fatalf("stop on untracked room must return false")
	}
	st := o.GetLocalStatus("untracked")
	if st.Running || st.PID != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	c := testConfig(t)
	c.Conference.URL = ""
	if _, err := New(c, nil); err == nil {
		t.Fatalf("expected error for missing conference url")
	}

	c = testConfig(t)
	c.Journal.DSNs = []string{"bogus://nope"}
	if _, err := New(c, nil); err == nil {
		t.Fatalf("expected error for bad journal dsn")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error")
	}
}
