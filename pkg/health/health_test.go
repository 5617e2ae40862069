package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

type mockHealthCheck struct {
	name string
	err  error
}

func (m *mockHealthCheck) Name() string {
	return m.name
}

func (m *mockHealthCheck) Check(ctx context.Context) error {
	return m.err
}

func TestHealthChecker_AddAndRemoveCheck(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&mockHealthCheck{name: "b"})
	hc.AddCheck(&mockHealthCheck{name: "a"})
	hc.AddCheck(&mockHealthCheck{name: "a", err: errors.New("replaced")})

	if got := hc.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v, expected [a b]", got)
	}

	hc.RemoveCheck("a")
	if got := hc.Names(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Names() after RemoveCheck = %v, expected [b]", got)
	}
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name     string
		checks   []HealthCheck
		expected string
	}{
		{"no checks", nil, "healthy"},
		{"all healthy", []HealthCheck{&mockHealthCheck{name: "a"}, &mockHealthCheck{name: "b"}}, "healthy"},
		{"one failing", []HealthCheck{&mockHealthCheck{name: "a"}, &mockHealthCheck{name: "b", err: errors.New("down")}}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for _, c := range tt.checks {
				hc.AddCheck(c)
			}
			status := hc.CheckHealth(context.Background())
			if status.Status != tt.expected {
				t.Errorf("Status = %q, expected %q", status.Status, tt.expected)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, expected %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestHandlerRoutes(t *testing.T) {
	hc := NewHealthChecker()
	failing := &mockHealthCheck{name: "game_loop", err: errors.New("stalled")}
	hc.AddCheck(failing)
	handler := hc.Handler()

	t.Run("liveness ignores checks", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("/health status = %d, expected 200", w.Code)
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["status"] != "alive" {
			t.Errorf("/health body = %v", body)
		}
	})

	t.Run("readiness fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("/ready status = %d, expected 503", w.Code)
		}
		var status HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatal(err)
		}
		if status.Checks["game_loop"].Message != "stalled" {
			t.Errorf("/ready body = %+v", status)
		}
	})

	t.Run("readiness recovers", func(t *testing.T) {
		failing.err = nil
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("/ready status = %d, expected 200", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("/metrics status = %d, expected 404", w.Code)
		}
	})
}

func TestTickLoopHealthCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    time.Time
		wantErr bool
	}{
		{"never ticked", time.Time{}, true},
		{"fresh", now.Add(-100 * time.Millisecond), false},
		{"at the limit", now.Add(-500 * time.Millisecond), false},
		{"stale", now.Add(-2 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewTickLoopHealthCheck(func() time.Time { return tt.last }, 500*time.Millisecond)
			check.now = func() time.Time { return now }
			err := check.Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if NewTickLoopHealthCheck(nil, 0).Name() != "game_loop" {
		t.Error("unexpected check name")
	}
}

func TestNetworkHealthCheck(t *testing.T) {
	addr := ""
	check := NewNetworkHealthCheck(func() string { return addr })

	if err := check.Check(context.Background()); err == nil {
		t.Error("Check() passed with no bound socket")
	}
	addr = "127.0.0.1:4000"
	if err := check.Check(context.Background()); err != nil {
		t.Errorf("Check() = %v with a bound socket", err)
	}
	if check.Name() != "network" {
		t.Errorf("Name() = %q", check.Name())
	}
}

func TestMemoryHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		usage   int64
		limit   int64
		wantErr bool
	}{
		{"under limit", 10, 100, false},
		{"at limit", 100, 100, false},
		{"over limit", 101, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewMemoryHealthCheck(tt.limit, func() int64 { return tt.usage })
			if err := check.Check(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if HeapUsageMB() < 0 {
		t.Error("HeapUsageMB() returned a negative value")
	}
}
