package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// Health is the service health response.
type Health struct {
	Status string `json:"status"`
}

// Health checks /api/health, retrying transient failures with exponential
// backoff. Client errors (4xx) are not retried.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.healthInterval
	policy.MaxElapsedTime = 0
	attempt := 0
	operation := func() error {
		attempt++
		var status int
		err := c.getJSON(ctx, "/api/health", &health, &status)
		if err == nil && health.Status != "ok" {
			err = fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
		}
		if err != nil {
			c.logger.Debug("health check failed", "attempt", attempt, "error", err)
			if ctx.Err() != nil || (status >= 400 && status < 500) {
				return backoff.Permanent(err)
			}
		}
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.healthRetries)), ctx))
	if err != nil {
		return Health{}, err
	}
	return health, nil
}

// Version returns the service build information.
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	var raw map[string]*string
	if err := c.getJSON(ctx, "/api/version", &raw, nil); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		} else {
			out[k] = ""
		}
	}
	return out, nil
}

// getJSON issues a GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any, status *int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, "get", err)
	}
	defer resp.Body.Close()
	if status != nil {
		*status = resp.StatusCode
	}
	if !successful(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
