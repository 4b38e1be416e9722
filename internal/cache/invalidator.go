// Package cache tells offline client caches which store keys changed.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Invalidator defines a cache invalidation contract.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string) error { return nil }

// HTTPInvalidator posts changed keys to an upstream invalidation endpoint,
// such as the service worker sync relay.
type HTTPInvalidator struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPInvalidator constructs an HTTPInvalidator.
func NewHTTPInvalidator(endpoint, token string, timeout time.Duration) *HTTPInvalidator {
	return &HTTPInvalidator{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/"),
		token:  token,
	}
}

type invalidationRequest struct {
	Key       string `json:"key"`
	ChangedAt string `json:"changedAt"`
}

// Invalidate triggers an HTTP POST naming the changed key.
func (h *HTTPInvalidator) Invalidate(ctx context.Context, key string) error {
	body, err := json.Marshal(invalidationRequest{Key: key, ChangedAt: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &InvalidationError{Status: resp.StatusCode}
	}
	return nil
}

// InvalidationError represents a non-successful invalidation response.
type InvalidationError struct {
	Status int
}

func (e *InvalidationError) Error() string {
	return "cache invalidation failed with status " + http.StatusText(e.Status)
}

// Listener adapts an Invalidator to a synchronous change callback. Each call
// is dispatched on its own goroutine bounded by timeout; failures are logged.
func Listener(inv Invalidator, timeout time.Duration, logger *zap.Logger) func(key string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(key string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := inv.Invalidate(ctx, key); err != nil {
				logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}
}
