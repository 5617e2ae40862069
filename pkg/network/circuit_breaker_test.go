package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-tanks/pkg/config"
	"github.com/opd-ai/go-tanks/pkg/logging"
)

func breakerConfig(maxFails int, timeout time.Duration) *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		CircuitBreakerMaxRequests:         2,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             timeout,
		CircuitBreakerMaxConsecutiveFails: maxFails,
	}
}

func newTestService(maxFails int, timeout time.Duration) *NetworkService {
	ns := NewNetworkService(breakerConfig(maxFails, timeout), logging.Discard())
	ns.BaseDelay = 5 * time.Millisecond
	return ns
}

func TestNetworkService_Execute(t *testing.T) {
	ns := newTestService(5, 30*time.Second)
	ctx := context.Background()

	t.Run("successful operation", func(t *testing.T) {
		if err := ns.Execute(ctx, func() error { return nil }); err != nil {
			t.Errorf("Execute() = %v, expected nil", err)
		}
		if ns.GetState() != gobreaker.StateClosed {
			t.Errorf("GetState() = %v, expected closed", ns.GetState())
		}
	})

	t.Run("failed operation wraps error", func(t *testing.T) {
		testError := errors.New("test error")
		err := ns.Execute(ctx, func() error { return testError })
		if !errors.Is(err, testError) {
			t.Errorf("Execute() = %v, expected to wrap %v", err, testError)
		}
		if ns.GetState() != gobreaker.StateClosed {
			t.Errorf("GetState() after one failure = %v, expected closed", ns.GetState())
		}
	})
}

func TestNetworkService_CircuitBreakerTrip(t *testing.T) {
	ns := newTestService(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ns.Execute(ctx, func() error { return errors.New("connection refused") })
	}
	if ns.GetState() != gobreaker.StateOpen {
		t.Fatalf("GetState() = %v, expected open", ns.GetState())
	}

	called := false
	err := ns.Execute(ctx, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Execute() = %v, expected ErrOpenState", err)
	}
	if called {
		t.Error("operation ran while the breaker was open")
	}
}

func TestNetworkService_CircuitBreakerRecovery(t *testing.T) {
	ns := newTestService(2, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ns.Execute(ctx, func() error { return errors.New("timeout") })
	}
	if ns.GetState() != gobreaker.StateOpen {
		t.Fatalf("GetState() = %v, expected open", ns.GetState())
	}

	time.Sleep(80 * time.Millisecond)

	if err := ns.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Execute() in half-open state = %v, expected nil", err)
	}
	if state := ns.GetState(); state == gobreaker.StateOpen {
		t.Errorf("GetState() after recovery = %v, expected closed or half-open", state)
	}
}

func TestNetworkService_ExecuteWithRetry(t *testing.T) {
	t.Run("eventual success", func(t *testing.T) {
		ns := newTestService(10, 30*time.Second)
		attempt := 0
		err := ns.ExecuteWithRetry(context.Background(), func() error {
			attempt++
			if attempt < 3 {
				return errors.New("no reply")
			}
			return nil
		})
		if err != nil {
			t.Errorf("ExecuteWithRetry() = %v, expected nil", err)
		}
		if attempt != 3 {
			t.Errorf("attempts = %d, expected 3", attempt)
		}
	})

	t.Run("all retries fail", func(t *testing.T) {
		ns := newTestService(10, 30*time.Second)
		attempt := 0
		err := ns.ExecuteWithRetry(context.Background(), func() error {
			attempt++
			return errors.New("no reply")
		})
		if err == nil {
			t.Error("ExecuteWithRetry() = nil, expected error")
		}
		if attempt != ns.MaxRetries {
			t.Errorf("attempts = %d, expected %d", attempt, ns.MaxRetries)
		}
	})

	t.Run("open breaker stops retries", func(t *testing.T) {
		ns := newTestService(1, 30*time.Second)
		attempt := 0
		err := ns.ExecuteWithRetry(context.Background(), func() error {
			attempt++
			return errors.New("no reply")
		})
		if err == nil {
			t.Error("ExecuteWithRetry() = nil, expected error")
		}
		if attempt != 1 {
			t.Errorf("attempts = %d, expected 1", attempt)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		ns := newTestService(10, 30*time.Second)
		ns.BaseDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		err := ns.ExecuteWithRetry(ctx, func() error { return errors.New("no reply") })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ExecuteWithRetry() = %v, expected context.Canceled", err)
		}
	})
}

func TestNetworkService_GetCounts(t *testing.T) {
	ns := newTestService(5, 30*time.Second)
	if counts := ns.GetCounts(); counts.Requests != 0 {
		t.Errorf("initial Requests = %d, expected 0", counts.Requests)
	}

	ns.Execute(context.Background(), func() error { return nil })
	ns.Execute(context.Background(), func() error { return errors.New("x") })

	counts := ns.GetCounts()
	if counts.TotalSuccesses != 1 || counts.TotalFailures != 1 {
		t.Errorf("GetCounts() = %+v, expected one success and one failure", counts)
	}
}

func TestNewNetworkService_NilLogger(t *testing.T) {
	ns := NewNetworkService(breakerConfig(5, time.Second), nil)
	if ns == nil || ns.logger == nil {
		t.Fatal("NewNetworkService() with nil logger returned no logger")
	}
	if ns.MaxRetries != 3 || ns.BaseDelay != time.Second {
		t.Errorf("defaults = (%d, %v), expected (3, 1s)", ns.MaxRetries, ns.BaseDelay)
	}
}
