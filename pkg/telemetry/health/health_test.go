package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChecker_Readiness(t *testing.T) {
	var ready atomic.Bool
	checker := New(time.Second)
	checker.RegisterCheck("embedding_store", ReadyCheck("embedding store", ready.Load))
	checker.RegisterCheck("config", func(context.Context) error { return nil })

	report := checker.CheckReadiness(context.Background())
	if report.Status != StatusNotReady {
		t.Fatalf("status = %q, want %q", report.Status, StatusNotReady)
	}
	if got := report.Checks["embedding_store"]; got.Status != StatusUnhealthy || got.Message != "embedding store not ready" {
		t.Errorf("unexpected check result %+v", got)
	}

	ready.Store(true)
	if report := checker.CheckReadiness(context.Background()); report.Status != StatusReady {
		t.Errorf("status = %q after store became ready", report.Status)
	}
}

func TestChecker_NoChecksIsReady(t *testing.T) {
	if report := New(0).CheckReadiness(context.Background()); report.Status != StatusReady {
		t.Errorf("status = %q", report.Status)
	}
}

func TestChecker_Timeout(t *testing.T) {
	checker := New(10 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	report := checker.CheckReadiness(context.Background())
	if report.Status != StatusNotReady {
		t.Errorf("status = %q", report.Status)
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	mux := http.NewServeMux()
	Register(mux, checker, VersionInfo{Version: "1.2.3"})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodHead, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("invalid version body: %v", err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("unexpected version info %+v", info)
	}
}
