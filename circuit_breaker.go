package daqwire

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards submit round trips against a flapping or
// unreachable device. Only transport-level failures count against the
// breaker; per-command device statuses resolve inside the Result slice
// and are not failures of the connection.
//
// *gobreaker.CircuitBreaker[[]Result] satisfies this interface directly.
type CircuitBreaker interface {
	Execute(fn func() ([]Result, error)) ([]Result, error)
}

// NewCircuitBreakerConfig returns a factory creating circuit breakers for
// device endpoints, suitable for Config.NewCircuitBreaker. The breaker
// opens once at least 3 requests in the rolling interval have run and 60%
// of them failed.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[[]Result](settings)
	}
}
