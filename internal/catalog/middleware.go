package catalog

import (
	"context"
	"math"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

// CallFunc is the signature of a remote catalog call.
type CallFunc func(ctx context.Context) (interface{}, error)

// CallMiddleware is a function that wraps a CallFunc.
type CallMiddleware func(CallFunc) CallFunc

// ApplyMiddleware applies a chain of middleware to a catalog call.
func ApplyMiddleware(call CallFunc, middlewares ...CallMiddleware) CallFunc {
	// Apply middleware in reverse order so they wrap correctly
	for i := len(middlewares) - 1; i >= 0; i-- {
		call = middlewares[i](call)
	}
	return call
}

// WithTimeout returns a middleware that bounds a catalog call so a slow
// catalog cannot stall a reservation mutation indefinitely.
func WithTimeout(timeout time.Duration) CallMiddleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context) (interface{}, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				value interface{}
				err   error
			}
			resultChan := make(chan result, 1)

			go func() {
				value, err := next(timeoutCtx)
				resultChan <- result{value, err}
			}()

			select {
			case res := <-resultChan:
				return res.value, res.err
			case <-timeoutCtx.Done():
				return nil, errors.RemoteUnavailable(timeoutCtx.Err())
			}
		}
	}
}

// RetryPolicy defines the transport-level retry strategy. Retrying is a
// transport concern; the admissibility rules themselves never retry.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// WithRetry returns a middleware that retries a catalog call on
// transport failures. Business rejections are never retried, and an
// open breaker fails immediately.
func WithRetry(logger *observability.Logger, policy RetryPolicy) CallMiddleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context) (interface{}, error) {
			var lastErr error

			for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
				value, err := next(ctx)
				if err == nil {
					return value, nil
				}

				if !errors.IsRemoteUnavailable(err) {
					return nil, err
				}
				if gbErr, ok := err.(*errors.BusinessError); ok && gbErr.Cause == gobreaker.ErrOpenState {
					return nil, err
				}

				lastErr = err

				if attempt < policy.MaxAttempts {
					backoff := calculateBackoff(attempt-1, policy)
					logger.WithError(err).Debug("retrying catalog call after backoff")
					select {
					case <-time.After(backoff):
						// Continue to next attempt
					case <-ctx.Done():
						return nil, errors.RemoteUnavailable(ctx.Err())
					}
				}
			}

			return nil, lastErr
		}
	}
}

// calculateBackoff calculates exponential backoff
func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	backoff := float64(policy.InitialBackoff.Milliseconds()) *
		math.Pow(policy.BackoffMultiplier, float64(attempt))

	maxMs := float64(policy.MaxBackoff.Milliseconds())
	if backoff > maxMs {
		backoff = maxMs
	}

	return time.Duration(backoff) * time.Millisecond
}

// WithBreaker returns a middleware that protects catalog calls with a
// circuit breaker. Once the catalog is judged unhealthy, calls fail
// fast with a catalog-unavailable error instead of blocking callers.
func WithBreaker(name string, threshold float64, timeout time.Duration, metrics *observability.Metrics) CallMiddleware {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= threshold
		},
		// Only availability problems count against the breaker. Catalog
		// rejections (404 and friends) come from a healthy catalog and
		// must not trip it.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.IsRemoteUnavailable(err)
		},
	})

	return func(next CallFunc) CallFunc {
		return func(ctx context.Context) (interface{}, error) {
			value, err := cb.Execute(func() (interface{}, error) {
				return next(ctx)
			})

			if err != nil {
				if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
					if metrics != nil {
						metrics.CatalogBreakerOpen.Inc()
					}
					return nil, errors.RemoteUnavailable(err)
				}
				return nil, err
			}

			return value, nil
		}
	}
}
