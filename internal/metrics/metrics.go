package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	agentStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "agent",
			Name:      "starts_total",
			Help:      "Number of successful agent launches.",
		}, []string{"room"},
	)
	agentStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "agent",
			Name:      "stops_total",
			Help:      "Number of agent processes that exited or were stopped.",
		}, []string{"room"},
	)
	spawnErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "agent",
			Name:      "spawn_errors_total",
			Help:      "Number of launches that failed to spawn or died before promotion.",
		}, []string{"room"},
	)
	runningAgents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "parley",
			Subsystem: "agent",
			Name:      "running",
			Help:      "Current number of tracked agent processes.",
		},
	)
	graceWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parley",
			Subsystem: "agent",
			Name:      "grace_wait_seconds",
			Help:      "Post-spawn grace period observed before promotion to running.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	presenceChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "presence",
			Name:      "checks_total",
			Help:      "Presence checks by outcome (present, absent, unknown).",
		}, []string{"outcome"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{agentStarts, agentStops, spawnErrors, runningAgents, graceWait, presenceChecks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(room string) {
	if regOK.Load() {
		agentStarts.WithLabelValues(room).Inc()
	}
}

func IncStop(room string) {
	if regOK.Load() {
		agentStops.WithLabelValues(room).Inc()
	}
}

func IncSpawnError(room string) {
	if regOK.Load() {
		spawnErrors.WithLabelValues(room).Inc()
	}
}

func SetRunningAgents(n int) {
	if regOK.Load() {
		runningAgents.Set(float64(n))
	}
}

func ObserveGraceWait(seconds float64) {
	if regOK.Load() {
		graceWait.Observe(seconds)
	}
}

func IncPresenceCheck(outcome string) {
	if regOK.Load() {
		presenceChecks.WithLabelValues(outcome).Inc()
	}
}
