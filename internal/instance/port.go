package instance

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// IsPortAvailable reports whether a TCP port is free to bind on this host.
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailablePort scans forward from startPort and returns the first
// free one, or 0 if none of the next 20 are available.
func FindAvailablePort(startPort int) int {
	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		if IsPortAvailable(port) {
			return port
		}
	}
	return 0
}

// HealthCheck GETs the httpapi health endpoint; nil means the instance is
// responding.
func HealthCheck(port int) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// SendShutdownRequest asks a running instance to shut down gracefully.
func SendShutdownRequest(port int) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://127.0.0.1:%d/shutdown", port), "application/json", nil)
	if err != nil {
		return fmt.Errorf("shutdown request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutdown request returned status %d", resp.StatusCode)
	}
	return nil
}

// WaitForPortToBeAvailable polls port until it frees up or timeout elapses.
func WaitForPortToBeAvailable(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsPortAvailable(port) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
