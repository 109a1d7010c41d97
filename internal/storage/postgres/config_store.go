package postgres

import (
	"context"
	"fmt"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// ConfigStore reads fetch configurations.
type ConfigStore struct {
	pool dbPool
}

// NewConfigStore creates a ConfigStore over an existing pool.
func NewConfigStore(pool dbPool) (*ConfigStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ConfigStore{pool: pool}, nil
}

// List returns every fetch configuration row.
func (s *ConfigStore) List(ctx context.Context) ([]supervisor.FetchConfig, error) {
	const query = `
SELECT config_id, embedding_source, categorize_method, linking_method, summary_method, editor_model, inactive
FROM configs`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var out []supervisor.FetchConfig
	for rows.Next() {
		var cfg supervisor.FetchConfig
		if err := rows.Scan(
			&cfg.ConfigID,
			&cfg.EmbeddingSource,
			&cfg.CategorizeMethod,
			&cfg.LinkingMethod,
			&cfg.SummaryMethod,
			&cfg.EditorModel,
			&cfg.Inactive,
		); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configs: %w", err)
	}
	return out, nil
}
