// In file: internal/httpretry/httpretry.go

// Package httpretry performs HTTP requests with exponential backoff. It is
// shared by every outbound REST client (NWS, Pinecone) so they all treat
// transient failures the same way.
package httpretry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 2 * time.Second
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: status %d, body: %s", e.StatusCode, e.Body)
}

// Doer performs HTTP requests with retries.
type Doer struct {
	Client       *http.Client
	MaxRetries   int
	InitialDelay time.Duration
}

// New returns a Doer with the default retry policy.
func New(client *http.Client) *Doer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Doer{Client: client, MaxRetries: DefaultMaxRetries, InitialDelay: DefaultInitialDelay}
}

// Do sends req and returns the response body of the first 2xx answer.
// Network errors and 5xx responses are retried with exponential backoff.
// 4xx responses are returned at once as *StatusError.
func (d *Doer) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	// The body must be readable on every attempt.
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
		bodyBytes = b
	}

	attempts := d.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := d.InitialDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		attempt := req.Clone(ctx)
		if bodyBytes != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			attempt.ContentLength = int64(len(bodyBytes))
		}

		resp, err := d.Client.Do(attempt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", i+1, attempts, err)
			zap.S().Warnf("⚠️ %v", lastErr)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, statusErr
		}
		lastErr = fmt.Errorf("attempt %d/%d: %w", i+1, attempts, statusErr)
		zap.S().Warnf("⚠️ %v", lastErr)
	}
	return nil, lastErr
}
