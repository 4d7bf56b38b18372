package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/orchestrator"
	"github.com/FlexNetOS/agentaskit/internal/registry"
)

// upgrader accepts only localhost-origin WebSocket connections; the
// dashboard this serves is never exposed past the operator's own host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := originURL.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Server is the kernel's ambient read-only status/health/event surface; it
// holds no durable state of its own and never mutates the orchestrator or
// registry beyond the single explicit Shutdown it can trigger.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *Hub

	orch  *orchestrator.Orchestrator
	reg   *registry.Registry
	sink  *observability.Sink
	clock func() time.Time

	startTime time.Time

	// ShutdownChan is closed exactly once, the first time /shutdown is
	// requested, mirroring internal/server/server.go's ShutdownChan so
	// cmd/agentaskit can select on it alongside OS signals.
	ShutdownChan chan struct{}
	shutdownOnce bool
}

// NewServer wires a Server over orch and reg for the given bind address.
func NewServer(addr string, orch *orchestrator.Orchestrator, reg *registry.Registry, sink *observability.Sink) *Server {
	s := &Server{
		hub:          NewHub(),
		orch:         orch,
		reg:          reg,
		sink:         sink,
		clock:        time.Now,
		startTime:    time.Now(),
		ShutdownChan: make(chan struct{}),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// setupRoutes registers every HTTP endpoint this surface exposes. /healthz
// and /shutdown match exactly what internal/instance/port.go's HealthCheck
// and SendShutdownRequest call.
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(securityHeadersMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.HandleFunc("/shutdown", s.handleShutdown).Methods("POST")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/agents", s.handleAgents).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start runs the hub and serves HTTP until Shutdown is called. It blocks;
// callers run it in a goroutine, matching cmd/cliaimonitor/main.go's
// `go func() { serverErr <- srv.Start(...) }()`.
func (s *Server) Start() error {
	go s.hub.Run()
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and tears down the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

// BroadcastAgents pushes the current registry snapshot to every connected
// WebSocket client; callers poll the registry and invoke this on an
// interval, since this package never reaches into the orchestrator's
// internal dispatch loop.
func (s *Server) BroadcastAgents() {
	s.hub.BroadcastJSON(map[string]any{
		"type":   "agents",
		"agents": s.reg.List(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleShutdown only honors requests from localhost, per
// internal/server/handlers.go's handleShutdown, then signals ShutdownChan
// so the CLI's own select loop drives the orchestrator's graceful Shutdown
// rather than this handler doing it inline.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	if host != "127.0.0.1" && host != "::1" {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "shutdown can only be requested from localhost"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "shutting_down"})

	if !s.shutdownOnce {
		s.shutdownOnce = true
		close(s.ShutdownChan)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": s.clock().Sub(s.startTime).Seconds(),
		"agent_count":    len(s.reg.List()),
		"ws_clients":     s.hub.ClientCount(),
		"accepting":      s.orch.Accepting(),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.reg.List())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.sink.Warnf("websocket upgrade failed: %v", err)
		return
	}
	client := &Client{hub: s.hub, conn: conn, send: make(chan []byte, clientSendBuffer)}
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
