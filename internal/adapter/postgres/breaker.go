package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerDirectory guards an AccountDirectory with a circuit breaker so a
// struggling database turns identity lookups into fast failures.
type BreakerDirectory struct {
	next domain.AccountDirectory
	cb   *gobreaker.CircuitBreaker
}

var _ domain.AccountDirectory = (*BreakerDirectory)(nil)

// NewBreakerDirectory trips after 5 consecutive failures and probes again
// after 30s.
func NewBreakerDirectory(next domain.AccountDirectory, m *metrics.DBMetrics) *BreakerDirectory {
	return newBreakerDirectory(next, m, 30*time.Second)
}

func newBreakerDirectory(next domain.AccountDirectory, m *metrics.DBMetrics, timeout time.Duration) *BreakerDirectory {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "account-directory",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrAccountNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			m.CircuitState.Set(breakerStateToFloat(to))
		},
	})
	return &BreakerDirectory{next: next, cb: cb}
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (d *BreakerDirectory) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	result, err := d.cb.Execute(func() (any, error) {
		return d.next.GetAccount(ctx, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("account directory unavailable: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*domain.Account), nil
}

// State returns the current breaker state.
func (d *BreakerDirectory) State() gobreaker.State {
	return d.cb.State()
}
