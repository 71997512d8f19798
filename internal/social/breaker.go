package social

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/clipfuse/clipfuse/internal/monitoring"
)

// ErrCircuitOpen is returned when a platform's circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds circuit breaker tuning for the platform clients
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open
	MaxRequests uint32
	// Interval is the cyclic period of the closed state
	// for the breaker to clear its internal counts
	Interval time.Duration
	// Timeout is the period of the open state, after which
	// the breaker becomes half-open
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker tuning
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerManager keeps one circuit breaker per platform
type BreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	config   *BreakerConfig
	mu       sync.RWMutex
}

// NewBreakerManager creates a breaker manager
func NewBreakerManager(config *BreakerConfig) *BreakerManager {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	return &BreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		config:   config,
	}
}

func (m *BreakerManager) getBreaker(platform string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	cb, exists := m.breakers[platform]
	m.mu.RUnlock()
	if exists {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, exists = m.breakers[platform]; exists {
		return cb
	}

	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("platform-%s", platform),
		MaxRequests: m.config.MaxRequests,
		Interval:    m.config.Interval,
		Timeout:     m.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			monitoring.Get().CircuitBreakerState.WithLabelValues(platform).Set(stateGaugeValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Only upstream flakiness should trip the breaker; a rejected
			// token is the user's problem, not the platform's.
			return errors.Is(err, ErrTokenRejected)
		},
	})
	m.breakers[platform] = cb
	return cb
}

// Execute runs fn under the platform's breaker
func (m *BreakerManager) Execute(ctx context.Context, platform string, fn func() (interface{}, error)) (interface{}, error) {
	cb := m.getBreaker(platform)

	result, err := cb.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn().
				Str("platform", platform).
				Msg("Circuit breaker is open, rejecting request")
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

func stateGaugeValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
