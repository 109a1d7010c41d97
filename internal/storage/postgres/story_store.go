package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// StoryStore writes story rows and their source membership into Postgres.
type StoryStore struct {
	pool dbPool
}

// NewStoryStore creates a StoryStore over an existing pool.
func NewStoryStore(pool dbPool) (*StoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &StoryStore{pool: pool}, nil
}

// AddStories inserts story rows.
func (s *StoryStore) AddStories(ctx context.Context, stories []supervisor.Story) error {
	const query = `
INSERT INTO stories (story_id, request_id, category_id)
VALUES ($1, $2, $3)`
	for _, story := range stories {
		if _, err := s.pool.Exec(ctx, query, story.StoryID, story.RequestID, story.CategoryID); err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
	}
	return nil
}

// AddStorySources inserts source membership rows.
func (s *StoryStore) AddStorySources(ctx context.Context, sources []supervisor.StorySource) error {
	const query = `
INSERT INTO story_sources (story_id, source_id, channel_id)
VALUES ($1, $2, $3)`
	for _, source := range sources {
		if _, err := s.pool.Exec(ctx, query, source.StoryID, source.SourceID, source.ChannelID); err != nil {
			return fmt.Errorf("insert story source: %w", err)
		}
	}
	return nil
}

// GetStorySources reads back the texts and references of a story's sources.
func (s *StoryStore) GetStorySources(ctx context.Context, storyID uuid.UUID) ([]supervisor.SourceText, error) {
	const query = `
SELECT ss.story_id, src.text, src.reference
FROM story_sources ss
JOIN sources src ON src.source_id = ss.source_id AND src.channel_id = ss.channel_id
WHERE ss.story_id = $1`
	rows, err := s.pool.Query(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("query story sources: %w", err)
	}
	defer rows.Close()

	var out []supervisor.SourceText
	for rows.Next() {
		var st supervisor.SourceText
		if err := rows.Scan(&st.StoryID, &st.Text, &st.Reference); err != nil {
			return nil, fmt.Errorf("scan story source: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story sources: %w", err)
	}
	return out, nil
}
