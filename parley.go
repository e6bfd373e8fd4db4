package parley

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/parley/internal/agent"
	cfg "github.com/loykin/parley/internal/config"
	"github.com/loykin/parley/internal/env"
	"github.com/loykin/parley/internal/journal"
	"github.com/loykin/parley/internal/journal/factory"
	"github.com/loykin/parley/internal/launcher"
	"github.com/loykin/parley/internal/metrics"
	"github.com/loykin/parley/internal/orchestrator"
	"github.com/loykin/parley/internal/presence"
	"github.com/loykin/parley/internal/roomdir"
	"github.com/loykin/parley/internal/script"
	iapi "github.com/loykin/parley/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type StartResult = orchestrator.StartResult

type LocalStatus = orchestrator.LocalStatus

type FullStatus = orchestrator.FullStatus

type Record = agent.Record

type PresenceResult = presence.Result

// Orchestrator is a thin facade over internal/orchestrator.Orchestrator.
// It owns the journal sinks opened at construction time.
type Orchestrator struct {
	inner *orchestrator.Orchestrator
	sinks []journal.Sink
}

// New wires a full orchestrator from config: registry, script generator,
// launcher with journal sinks, room directory client and presence checker.
func New(c *Config, log *slog.Logger) (*Orchestrator, error) {
	if log == nil {
		log = slog.Default()
	}
	dir, err := roomdir.NewClient(roomdir.Config{
		BaseURL:   c.Conference.URL,
		APIKey:    c.Conference.APIKey,
		APISecret: c.Conference.APISecret,
		CACert:    c.Conference.CACert,
		Insecure:  c.Conference.Insecure,
	})
	if err != nil {
		return nil, err
	}

	reg := agent.NewRegistry()
	envM := env.New()
	envM.SetAll(c.Env)

	l := launcher.New(reg, envM, log)
	l.GracePeriod = c.Launcher.GracePeriod
	l.LogRotation = c.LaunchLog

	var sinks []journal.Sink
	for _, dsn := range c.Journal.DSNs {
		s, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			for _, prev := range sinks {
				_ = prev.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	l.SetJournalSinks(sinks...)

	inner, err := orchestrator.New(orchestrator.Options{
		Registry:  reg,
		Generator: script.NewGenerator(c.Launcher.ScratchDir, c.Agent.WorkerCommand),
		Launcher:  l,
		Directory: dir,
		Checker:   presence.NewChecker(dir),
		LaunchTemplate: script.LaunchConfig{
			ServerURL:    c.Conference.URL,
			APIKey:       c.Conference.APIKey,
			APISecret:    c.Conference.APISecret,
			Model:        c.Agent.Model,
			Voice:        c.Agent.Voice,
			Instructions: c.Agent.Instructions,
		},
		RoomDefaults: roomdir.RoomOptions{
			EmptyTimeoutSec: c.Room.EmptyTimeoutSec,
			MaxParticipants: c.Room.MaxParticipants,
		},
		Logger: log,
	})
	if err != nil {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}
	return &Orchestrator{inner: inner, sinks: sinks}, nil
}

func (o *Orchestrator) StartAgent(ctx context.Context, room string) (StartResult, error) {
	return o.inner.StartAgent(ctx, room)
}
func (o *Orchestrator) StopAgent(room string) bool { return o.inner.StopAgent(room) }
func (o *Orchestrator) GetLocalStatus(room string) LocalStatus {
	return o.inner.GetLocalStatus(room)
}
func (o *Orchestrator) ListLocalStatus() []LocalStatus { return o.inner.ListLocalStatus() }
func (o *Orchestrator) GetFullStatus(ctx context.Context, room string) FullStatus {
	return o.inner.GetFullStatus(ctx, room)
}

// StopAll signals every tracked agent. Used during daemon shutdown.
func (o *Orchestrator) StopAll() {
	for _, st := range o.inner.ListLocalStatus() {
		o.inner.StopAgent(st.Room)
	}
}

// Close releases journal sinks. Running agents are left alone; they are
// detached and survive orchestrator restarts.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, s := range o.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func LoadConfig(path string) (*Config, error) {
	return cfg.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the internal API using the given orchestrator.
func NewHTTPServer(addr, basePath string, o *Orchestrator) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, o.inner)
}

// NewRouterHandler returns an http.Handler for embedding the API in an
// existing server or mux.
func NewRouterHandler(basePath string, o *Orchestrator) http.Handler {
	return iapi.NewRouter(o.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
