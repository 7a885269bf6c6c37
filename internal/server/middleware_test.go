package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestRateLimiter_Allow tests basic rate limiting functionality
func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(10, time.Second) // 10 requests per second
	connID := "test-conn-1"

	// First 10 requests should be allowed
	for i := 0; i < 10; i++ {
		if !limiter.Allow(connID) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 11th request should be denied
	if limiter.Allow(connID) {
		t.Error("11th request should be denied")
	}
}

// TestRateLimiter_WindowReset tests that rate limit window resets after duration
func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond) // 2 requests per 100ms
	connID := "test-conn-2"

	// Use up the limit
	if !limiter.Allow(connID) {
		t.Error("First request should be allowed")
	}
	if !limiter.Allow(connID) {
		t.Error("Second request should be allowed")
	}
	if limiter.Allow(connID) {
		t.Error("Third request should be denied")
	}

	// Wait for window to reset
	time.Sleep(150 * time.Millisecond)

	// Should be allowed again
	if !limiter.Allow(connID) {
		t.Error("Request after window reset should be allowed")
	}
}

// TestRateLimiter_MultipleConnections tests that limits are per-connection
func TestRateLimiter_MultipleConnections(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)
	conn1 := "conn-1"
	conn2 := "conn-2"

	// Exhaust conn1's limit
	for i := 0; i < 5; i++ {
		limiter.Allow(conn1)
	}
	if limiter.Allow(conn1) {
		t.Error("conn1 should be rate limited")
	}

	// conn2 should still have full limit
	for i := 0; i < 5; i++ {
		if !limiter.Allow(conn2) {
			t.Errorf("conn2 request %d should be allowed", i+1)
		}
	}
}

// TestRateLimiter_Cleanup tests that old connection data is cleaned up
func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(10, 100*time.Millisecond)

	// Add requests for multiple connections
	for i := 0; i < 5; i++ {
		connID := "conn-" + string(rune('0'+i))
		limiter.Allow(connID)
	}

	// Verify we have 5 connections tracked
	limiter.mu.Lock()
	if len(limiter.requests) != 5 {
		t.Errorf("Expected 5 connections, got %d", len(limiter.requests))
	}
	limiter.mu.Unlock()

	// Wait for cleanup
	time.Sleep(200 * time.Millisecond)
	limiter.Cleanup()

	// All connections should be cleaned up since no recent activity
	limiter.mu.Lock()
	if len(limiter.requests) != 0 {
		t.Errorf("Expected 0 connections after cleanup, got %d", len(limiter.requests))
	}
	limiter.mu.Unlock()
}

// TestConnectionHealth_UpdateActivity tests activity tracking
func TestConnectionHealth_UpdateActivity(t *testing.T) {
	health := NewConnectionHealth()
	connID := "test-conn"

	// Update activity
	health.UpdateActivity(connID)

	// Verify last activity was recorded
	health.mu.RLock()
	lastActivity, exists := health.lastActivity[connID]
	health.mu.RUnlock()

	if !exists {
		t.Error("Activity should be recorded")
	}

	if time.Since(lastActivity) > time.Second {
		t.Error("Activity should be recent")
	}
}

// TestConnectionHealth_IsInactive tests timeout detection
func TestConnectionHealth_IsInactive(t *testing.T) {
	health := NewConnectionHealth()
	connID := "test-conn"

	// Brand new connection should not be inactive
	if health.IsInactive(connID, time.Minute) {
		t.Error("New connection should not be inactive")
	}

	// Record activity
	health.UpdateActivity(connID)

	// Still not inactive
	if health.IsInactive(connID, time.Minute) {
		t.Error("Recently active connection should not be inactive")
	}

	// Manually set old activity time
	health.mu.Lock()
	health.lastActivity[connID] = time.Now().Add(-2 * time.Minute)
	health.mu.Unlock()

	// Now should be inactive
	if !health.IsInactive(connID, time.Minute) {
		t.Error("Connection with old activity should be inactive")
	}
}

// TestConnectionHealth_GetInactiveConnections tests batch inactive detection
func TestConnectionHealth_GetInactiveConnections(t *testing.T) {
	health := NewConnectionHealth()

	// Create connections with different activity times
	health.UpdateActivity("active-1")
	health.UpdateActivity("active-2")

	health.mu.Lock()
	health.lastActivity["inactive-1"] = time.Now().Add(-6 * time.Minute)
	health.lastActivity["inactive-2"] = time.Now().Add(-10 * time.Minute)
	health.mu.Unlock()

	// Get inactive connections (5 minute timeout)
	inactive := health.GetInactiveConnections(5 * time.Minute)

	if len(inactive) != 2 {
		t.Errorf("Expected 2 inactive connections, got %d", len(inactive))
	}

	// Verify inactive-1 and inactive-2 are in the list
	found1, found2 := false, false
	for _, id := range inactive {
		if id == "inactive-1" {
			found1 = true
		}
		if id == "inactive-2" {
			found2 = true
		}
	}

	if !found1 || !found2 {
		t.Error("Should find both inactive connections")
	}
}

// TestConnectionHealth_RemoveConnection tests cleanup on disconnect
func TestConnectionHealth_RemoveConnection(t *testing.T) {
	health := NewConnectionHealth()
	connID := "test-conn"

	// Add activity
	health.UpdateActivity(connID)

	health.mu.RLock()
	_, exists := health.lastActivity[connID]
	health.mu.RUnlock()
	if !exists {
		t.Error("Connection should exist")
	}

	// Remove connection
	health.RemoveConnection(connID)

	health.mu.RLock()
	_, exists = health.lastActivity[connID]
	health.mu.RUnlock()
	if exists {
		t.Error("Connection should be removed")
	}
}

// TestValidateMessageType tests lobby message type validation
func TestValidateMessageType(t *testing.T) {
	validTypes := []string{"ping", "set_ready", "leave_room"}
	for _, msgType := range validTypes {
		if err := ValidateMessageType(msgType); err != nil {
			t.Errorf("Valid message type '%s' should not error", msgType)
		}
	}

	invalidTypes := []string{"invalid", "create_game", "pong", "room_update", "PING", ""}
	for _, msgType := range invalidTypes {
		if err := ValidateMessageType(msgType); err == nil {
			t.Errorf("Invalid message type '%s' should error", msgType)
		}
	}
}

// TestRateLimiter_Middleware tests that HTTP requests over the limit get 429
func TestRateLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Second)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("10.0.0.1:1000"); code != http.StatusNoContent {
		t.Errorf("First request should pass, got %d", code)
	}
	if code := request("10.0.0.1:1001"); code != http.StatusNoContent {
		t.Errorf("Second request should pass, got %d", code)
	}
	if code := request("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Errorf("Third request from same IP should be limited, got %d", code)
	}
	if code := request("10.0.0.2:1000"); code != http.StatusNoContent {
		t.Errorf("Other client should not be limited, got %d", code)
	}
}

// TestClientIP tests remote address parsing
func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.168.1.5:4321"
	if ip := clientIP(req); ip != "192.168.1.5" {
		t.Errorf("Expected host without port, got %q", ip)
	}

	// RealIP rewrites RemoteAddr without a port.
	req.RemoteAddr = "203.0.113.9"
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Errorf("Expected bare address, got %q", ip)
	}
}

// TestOriginHosts tests conversion of CORS origins to socket origin patterns
func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"*", "http://localhost:5173", "https://*.example.com", "game.example.com"})
	want := []string{"*", "localhost:5173", "*.example.com", "game.example.com"}

	if len(got) != len(want) {
		t.Fatalf("Expected %d patterns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pattern %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
