// Package remote implements HTTP clients for the upstream scrape, grouping
// and summarization services. Every call is classified three ways: a 200 is
// decoded and returned, a 204 becomes a NoContentError, anything else an
// UnavailableError. There are no retries; the caller decides what a missing
// result means.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

const requestIDHeader = "X-Request-ID"

// Caller performs one classified HTTP call per invocation.
type Caller struct {
	client *http.Client
	logger *zap.Logger
}

// NewCaller builds a Caller with the given per-call timeout.
func NewCaller(timeout time.Duration, logger *zap.Logger) *Caller {
	return &Caller{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Post sends payload to url and decodes a 200 response into out. The op
// name travels with every error so failures can be attributed upstream.
func (c *Caller) Post(ctx context.Context, op, url string, corrID uuid.UUID, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &supervisor.UnexpectedError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &supervisor.UnexpectedError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, corrID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return &supervisor.UnexpectedError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &supervisor.UnexpectedError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case http.StatusNoContent:
		c.logger.Warn("got no content response", zap.String("op", op))
		return &supervisor.NoContentError{Op: op}
	default:
		c.logger.Error("upstream call failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return &supervisor.UnavailableError{Op: op, StatusCode: resp.StatusCode}
	}
}
