package env

import (
	"os"
	"sort"
	"strings"
)

// Env assembles the environment handed to a spawned agent process:
// the orchestrator's OS environment as base, config-level globals on top,
// and per-launch variables (connection parameters, credentials) last.
type Env struct {
	global map[string]string
}

func New() *Env {
	return &Env{global: make(map[string]string)}
}

// Set records a global KEY=VALUE applied to every launch.
func (e *Env) Set(k, v string) {
	if k == "" {
		return
	}
	e.global[k] = v
}

// SetAll parses "KEY=VALUE" pairs and records them as globals.
func (e *Env) SetAll(kvs []string) {
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			e.global[kv[:i]] = kv[i+1:]
		}
	}
}

// Merge returns the full environment for one launch. Later sources win:
// OS env < globals < launch vars. Output is sorted for determinism.
func (e *Env) Merge(launch map[string]string) []string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range e.global {
		m[k] = v
	}
	for k, v := range launch {
		if k != "" {
			m[k] = v
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
