package postgres

import (
	"context"
	"fmt"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// RequestStore records completed pipeline runs.
type RequestStore struct {
	pool dbPool
}

// NewRequestStore creates a RequestStore over an existing pool.
func NewRequestStore(pool dbPool) (*RequestStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RequestStore{pool: pool}, nil
}

// Add inserts one request row.
func (s *RequestStore) Add(ctx context.Context, request supervisor.Request) error {
	const query = `
INSERT INTO requests (request_id, chat_id, request_type, status, time_passed_ms, config_id)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		request.RequestID,
		request.ChatID,
		request.RequestType,
		request.Status,
		request.TimePassed.Milliseconds(),
		request.ConfigID,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}
