package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/parley/internal/metrics"
	"github.com/loykin/parley/internal/orchestrator"
)

// Router provides embeddable HTTP handlers for managing voice agents.
// Endpoints:
//   POST {basePath}/agents/start        query: room=...
//   POST {basePath}/agents/stop         query: room=...
//   GET  {basePath}/agents              list of local statuses
//   GET  {basePath}/agents/status       query: room=... (local view)
//   GET  {basePath}/agents/status/full  query: room=... (local + room presence)
//   GET  {basePath}/debug/agents        raw registry records
//   GET  /healthz
//   GET  /metrics
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	orc      *orchestrator.Orchestrator
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/agents/start and so on.
func NewRouter(orc *orchestrator.Orchestrator, basePath string) *Router {
	bp := sanitizeBase(basePath)
	return &Router{orc: orc, basePath: bp}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", r.handleHealthz)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	group := g.Group(r.basePath)
	group.POST("/agents/start", r.handleStart)
	group.POST("/agents/stop", r.handleStop)
	group.GET("/agents", r.handleList)
	group.GET("/agents/status", r.handleStatus)
	group.GET("/agents/status/full", r.handleFullStatus)
	group.GET("/debug/agents", r.handleDebugAgents)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Call Shutdown or Close on the returned server to stop it.
func NewServer(addr, basePath string, orc *orchestrator.Orchestrator) (*http.Server, error) {
	r := NewRouter(orc, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type stopResp struct {
	Stopped bool `json:"stopped"`
}

func (r *Router) roomParam(c *gin.Context) (string, bool) {
	room := c.Query("room")
	if room == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "room query param required"})
		return "", false
	}
	if !isSafeName(room) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid room: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return "", false
	}
	return room, true
}

func (r *Router) handleStart(c *gin.Context) {
	room, ok := r.roomParam(c)
	if !ok {
		return
	}
	res, err := r.orc.StartAgent(c.Request.Context(), room)
	if err != nil {
		writeJSON(c, http.StatusBadGateway, res)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleStop(c *gin.Context) {
	room, ok := r.roomParam(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, stopResp{Stopped: r.orc.StopAgent(room)})
}

func (r *Router) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.orc.ListLocalStatus())
}

func (r *Router) handleStatus(c *gin.Context) {
	room, ok := r.roomParam(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, r.orc.GetLocalStatus(room))
}

func (r *Router) handleFullStatus(c *gin.Context) {
	room, ok := r.roomParam(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, r.orc.GetFullStatus(c.Request.Context(), room))
}

// Debug endpoint for troubleshooting: raw registry records including
// launch IDs and retained error records.
func (r *Router) handleDebugAgents(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.orc.DebugRecords())
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
