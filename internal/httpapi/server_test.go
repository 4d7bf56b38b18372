package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/orchestrator"
	"github.com/FlexNetOS/agentaskit/internal/registry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sink := observability.New(nil, nil)
	reg := registry.New(sink)
	reg.Register(registry.Agent{ID: ids.NewAgentID(), Name: "worker-1", Status: registry.StatusActive, Health: registry.HealthHealthy})

	orch := orchestrator.New(reg, nil, nil, nil, nil, sink, orchestrator.DefaultConfig(t.TempDir()))
	return NewServer("127.0.0.1:0", orch, reg, sink)
}

func TestHandleHealthzAlwaysOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleShutdownRejectsNonLocalhost(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/shutdown", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-localhost shutdown request, got %d", rec.Code)
	}
	select {
	case <-s.ShutdownChan:
		t.Fatal("ShutdownChan should not close on a rejected request")
	default:
	}
}

func TestHandleShutdownAcceptsLocalhostAndClosesChanOnce(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/shutdown", nil)
	req.RemoteAddr = "127.0.0.1:55555"
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case <-s.ShutdownChan:
	default:
		t.Fatal("expected ShutdownChan to be closed after a localhost shutdown request")
	}

	// A second request must not attempt to close an already-closed channel.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/shutdown", nil)
	req2.RemoteAddr = "127.0.0.1:55556"
	s.router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected second shutdown request to still return 200, got %d", rec2.Code)
	}
}

func TestHandleStatusReportsAgentCount(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", rec.Header().Get("Content-Type"))
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding status body: %v", err)
	}
	if got := body["agent_count"]; got != float64(1) {
		t.Errorf("expected agent_count 1, got %v", got)
	}
}

func TestSecurityHeadersMiddlewareStripsServerVersion(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Server"); got != "agentaskit" {
		t.Errorf("expected generic Server header, got %q", got)
	}
	if got := rec.Header().Get("X-Powered-By"); got != "" {
		t.Errorf("expected no X-Powered-By header, got %q", got)
	}
}

func TestCheckOriginAllowsLocalhostRejectsOthers(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1:8080", true},
		{"http://evil.example.com", false},
		{"not-a-url", false},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if c.origin != "" {
			req.Header.Set("Origin", c.origin)
		}
		if got := checkOrigin(req); got != c.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", c.origin, got, c.want)
		}
	}
}

func TestHubBroadcastDeliversToRegisteredClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)

	// Give the register call a moment to be processed by Run's select loop.
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastJSON(map[string]string{"type": "ping"})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("expected a non-empty broadcast payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast delivery")
	}
}

func TestHubClientCount(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients initially, got %d", hub.ClientCount())
	}

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after Register, got %d", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after Unregister, got %d", hub.ClientCount())
	}
}
