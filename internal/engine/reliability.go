package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/holiman/uint256"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/agentvault/internal/connectors"
	"github.com/xela07ax/agentvault/internal/domain"
)

// ReliabilitySettings configures the wrapper. Zero values fall back to defaults.
type ReliabilitySettings struct {
	Name          string
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32
	RateLimit     float64
	RateBurst     int
	Attempts      uint
	CallTimeout   time.Duration
}

func (s *ReliabilitySettings) applyDefaults() {
	if s.Name == "" {
		s.Name = "swap-backend"
	}
	if s.CBMaxRequests == 0 {
		s.CBMaxRequests = 3
	}
	if s.CBInterval == 0 {
		s.CBInterval = 5 * time.Second
	}
	if s.CBTimeout == 0 {
		s.CBTimeout = 30 * time.Second
	}
	if s.CBFailures == 0 {
		s.CBFailures = 5
	}
	if s.RateLimit == 0 {
		s.RateLimit = 100
	}
	if s.RateBurst == 0 {
		s.RateBurst = 20
	}
	if s.Attempts == 0 {
		s.Attempts = 3
	}
	if s.CallTimeout == 0 {
		s.CallTimeout = 10 * time.Second
	}
}

// ReliabilityWrapper guards an execution backend with a rate limiter, a
// circuit breaker and retries. Only ThrottleError is retried: a throttled
// order was never executed, anything else may have been.
type ReliabilityWrapper struct {
	next     ExecutionBackend
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	settings ReliabilitySettings
}

func NewReliabilityWrapper(next ExecutionBackend, settings ReliabilitySettings, metrics *Metrics) *ReliabilityWrapper {
	settings.applyDefaults()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.CBMaxRequests,
		Interval:    settings.CBInterval,
		Timeout:     settings.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > settings.CBFailures
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	return &ReliabilityWrapper{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(rate.Limit(settings.RateLimit), settings.RateBurst),
		settings: settings,
	}
}

func (w *ReliabilityWrapper) ExecuteSwap(ctx context.Context, order domain.SwapOrder) (uint256.Int, error) {
	// 1. Rate limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return uint256.Int{}, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit breaker around the retry loop
	res, err := w.cb.Execute(func() (interface{}, error) {
		var out uint256.Int

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.settings.Attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(connectors.IsThrottle),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.settings.CallTimeout)
			defer cancel()

			var callErr error
			out, callErr = w.next.ExecuteSwap(tCtx, order)
			return callErr
		})
		return out, retryErr
	})
	if err != nil {
		return uint256.Int{}, err
	}
	return res.(uint256.Int), nil
}

// Quote forwards to the wrapped backend when it can price orders.
func (w *ReliabilityWrapper) Quote(ctx context.Context, order domain.SwapOrder) (uint256.Int, error) {
	q, ok := w.next.(connectors.Quoter)
	if !ok {
		return uint256.Int{}, connectors.ErrUnsupportedOrder
	}
	return q.Quote(ctx, order)
}

// State exposes the breaker state for health checks.
func (w *ReliabilityWrapper) State() gobreaker.State {
	return w.cb.State()
}
