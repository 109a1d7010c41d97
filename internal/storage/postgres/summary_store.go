package postgres

import (
	"context"
	"fmt"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// SummaryStore persists generated summaries.
type SummaryStore struct {
	pool dbPool
}

// NewSummaryStore creates a SummaryStore over an existing pool.
func NewSummaryStore(pool dbPool) (*SummaryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SummaryStore{pool: pool}, nil
}

// Add inserts summary rows.
func (s *SummaryStore) Add(ctx context.Context, summaries []supervisor.Summary) error {
	const query = `
INSERT INTO summaries (summary_id, chat_id, story_id, summary, title, density, config_id, date_created)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, summary := range summaries {
		_, err := s.pool.Exec(ctx, query,
			summary.SummaryID,
			summary.ChatID,
			summary.StoryID,
			summary.Summary,
			summary.Title,
			summary.Density,
			summary.ConfigID,
			summary.DateCreated,
		)
		if err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}
	return nil
}
