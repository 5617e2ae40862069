package network

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-tanks/pkg/config"
	"github.com/opd-ai/go-tanks/pkg/logging"
)

// NetworkService runs outbound client operations through a circuit breaker
// so a dead server is not hammered with connect attempts.
type NetworkService struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger

	// MaxRetries bounds ExecuteWithRetry attempts.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number between retries.
	BaseDelay time.Duration
}

// NetworkOperation is one attempt of a network operation.
type NetworkOperation func() error

// NewNetworkService creates a breaker configured from the environment.
func NewNetworkService(envConfig *config.EnvironmentConfig, logger *logging.Logger) *NetworkService {
	if logger == nil {
		logger = logging.NewLogger()
	}
	maxFails := uint32(envConfig.CircuitBreakerMaxConsecutiveFails)

	settings := gobreaker.Settings{
		Name:        "tanks-client",
		MaxRequests: uint32(envConfig.CircuitBreakerMaxRequests),
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &NetworkService{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Execute runs operation once through the breaker. An open breaker fails
// without calling operation.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		ns.logger.Debug(ctx, "circuit breaker execution failed",
			"error", err.Error(),
			"state", ns.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}

// ExecuteWithRetry retries operation with a linearly growing delay. It gives
// up early when the breaker opens or ctx is done.
func (ns *NetworkService) ExecuteWithRetry(ctx context.Context, operation NetworkOperation) error {
	attempts := max(ns.MaxRetries, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		err := ns.Execute(ctx, operation)
		if err == nil {
			return nil
		}

		if ns.breaker.State() == gobreaker.StateOpen {
			ns.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", attempts,
			)
			return err
		}

		if attempt == attempts-1 {
			return fmt.Errorf("max retries (%d) exceeded: %w", attempts, err)
		}

		delay := time.Duration(attempt+1) * ns.BaseDelay
		ns.logger.Debug(ctx, "operation failed, retrying",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("unexpected exit from retry loop")
}

// GetState returns the breaker state.
func (ns *NetworkService) GetState() gobreaker.State {
	return ns.breaker.State()
}

// GetCounts returns the breaker's request counters.
func (ns *NetworkService) GetCounts() gobreaker.Counts {
	return ns.breaker.Counts()
}
