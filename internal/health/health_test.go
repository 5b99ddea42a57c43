package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyDegradedOnFailingCheck(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("chain_connection", func(ctx context.Context) (bool, string) {
		return false, "connection state reconnecting"
	})
	s.RegisterCheck("last_block_age", func(ctx context.Context) (bool, string) {
		return true, ""
	})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want %q", body.Status, "degraded")
	}
	conn := body.Checks["chain_connection"]
	if conn.Healthy {
		t.Error("chain_connection reported healthy")
	}
	if conn.Message != "connection state reconnecting" {
		t.Errorf("chain_connection message = %q", conn.Message)
	}
	if !body.Checks["last_block_age"].Healthy {
		t.Error("last_block_age reported unhealthy")
	}
}

func TestReadyOKWhenChecksPass(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("chain_connection", func(ctx context.Context) (bool, string) {
		return true, ""
	})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var body Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if len(body.Checks) != 1 {
		t.Errorf("got %d checks, want 1", len(body.Checks))
	}
}

func TestLivenessIgnoresChecks(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("always_down", func(ctx context.Context) (bool, string) {
		return false, "down"
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var body Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if len(body.Checks) != 0 {
		t.Errorf("liveness ran %d checks, want 0", len(body.Checks))
	}
}
