// Package catalog is the client gateway to the item-catalog service.
// All calls run through a middleware chain (timeout, retry, circuit
// breaker) so a catalog outage degrades the reservation flow instead of
// cascading into it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/infrastructure/config"
	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

// Client fetches item snapshots and adjusts inventory counts on the
// catalog service.
type Client interface {
	// FetchItem returns a point-in-time snapshot of the item. It fails
	// with a catalog-unavailable error on transport failure or when the
	// circuit breaker is open.
	FetchItem(ctx context.Context, itemID int64) (*domain.ReservationItem, error)
	// AdjustInventory asks the catalog to change the item's available
	// quantity by delta. Fire-and-observe: callers log failures but do
	// not roll back reservations on them.
	AdjustInventory(ctx context.Context, itemID int64, delta int) (bool, error)
}

// HTTPClient is the default catalog client over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	call    CallMiddleware
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHTTPClient creates a catalog client from configuration. One
// breaker instance guards all calls of the client so failures on any
// endpoint open it for all of them.
func NewHTTPClient(cfg *config.CatalogConfig, logger *observability.Logger, metrics *observability.Metrics) *HTTPClient {
	// The middleware factories run once so the breaker instance is
	// shared across calls and failure counts accumulate.
	mw := []CallMiddleware{
		WithTimeout(cfg.Timeout),
		WithRetry(logger, RetryPolicy{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
			MaxBackoff:        2 * time.Second,
			BackoffMultiplier: 2.0,
		}),
		WithBreaker("reserve-item", cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout, metrics),
	}
	chain := func(next CallFunc) CallFunc {
		return ApplyMiddleware(next, mw...)
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		call:    chain,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchItem implements Client.
func (c *HTTPClient) FetchItem(ctx context.Context, itemID int64) (*domain.ReservationItem, error) {
	url := fmt.Sprintf("%s/api/v1/reserve-items/%d", c.baseURL, itemID)

	value, err := c.call(func(ctx context.Context) (interface{}, error) {
		var item domain.ReservationItem
		if err := c.getJSON(ctx, url, &item); err != nil {
			return nil, err
		}
		return &item, nil
	})(ctx)
	if err != nil {
		return nil, err
	}

	return value.(*domain.ReservationItem), nil
}

// AdjustInventory implements Client.
func (c *HTTPClient) AdjustInventory(ctx context.Context, itemID int64, delta int) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/reserve-items/%d/inventories?delta=%d", c.baseURL, itemID, delta)

	_, err := c.call(func(ctx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
		if err != nil {
			return nil, errors.Internal("failed to build catalog request", err)
		}
		return nil, c.do(req, nil)
	})(ctx)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Internal("failed to build catalog request", err)
	}
	return c.do(req, out)
}

// do executes one request and decodes the body into out when non-nil.
// 5xx and transport failures count against the breaker; 4xx responses
// are catalog rejections, not availability problems.
func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	c.metrics.RecordCatalogRequest(time.Since(start), err)
	if err != nil {
		return errors.RemoteUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return errors.RemoteUnavailable(fmt.Errorf("catalog returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return errors.Internal(fmt.Sprintf("catalog item not found: %s", req.URL.Path), nil)
	case resp.StatusCode >= 400:
		return errors.Internal(fmt.Sprintf("catalog rejected request with %d", resp.StatusCode), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Internal("failed to decode catalog response", err)
	}
	return nil
}
