// Package cluster drives remote grouping rounds and turns flat index
// groupings into typed groups.
package cluster

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/config"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Orchestrator performs one grouping round per Clusterize call. Round one
// of a fetch groups raw items into categories; round two re-invokes it per
// category to split the category into stories.
type Orchestrator struct {
	linker  supervisor.Linker
	ids     supervisor.IDGenerator
	linking config.LinkingTable
	logger  *zap.Logger
}

// New builds an Orchestrator over the resolved linking settings table.
func New(
	linker supervisor.Linker,
	ids supervisor.IDGenerator,
	linking config.LinkingTable,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		linker:  linker,
		ids:     ids,
		linking: linking,
		logger:  logger,
	}
}

// Clusterize groups items with one remote call and materializes the result
// as typed groups with fresh identifiers. The trailing group of the remote
// response holds the unclustered leftovers and is flagged Noise. Groups are
// returned unordered; ranking happens later, once the caller has enough
// context.
func (o *Orchestrator) Clusterize(
	ctx context.Context,
	corrID uuid.UUID,
	embeddingSource string,
	method string,
	items []supervisor.Item,
) ([]supervisor.Group, error) {
	settings, err := o.linking.Settings(embeddingSource, method)
	if err != nil {
		return nil, err
	}

	indexGroups, err := o.linker.GroupItems(ctx, corrID, supervisor.GroupingRequest{
		Items:           items,
		EmbeddingSource: embeddingSource,
		Method:          method,
		Scorer:          settings.Scorer,
		Metric:          settings.Metric,
		Settings:        settings.Config,
	})
	if err != nil {
		return nil, err
	}

	if err := validateCoverage(indexGroups, len(items)); err != nil {
		return nil, &supervisor.UnexpectedError{Op: "linker", Err: err}
	}

	groups := make([]supervisor.Group, 0, len(indexGroups))
	for gi, indexes := range indexGroups {
		id, err := o.ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("assign group id: %w", err)
		}
		group := supervisor.Group{
			ID:    id,
			Items: make([]supervisor.Item, 0, len(indexes)),
			Noise: gi == len(indexGroups)-1,
		}
		for _, idx := range indexes {
			group.Items = append(group.Items, items[idx])
		}
		groups = append(groups, group)
	}

	o.logger.Debug("grouping round finished",
		zap.String("method", method),
		zap.Int("items", len(items)),
		zap.Int("groups", len(groups)),
	)
	return groups, nil
}

// validateCoverage checks that every input index appears in exactly one
// index group, noise included.
func validateCoverage(indexGroups [][]int, itemCount int) error {
	seen := make([]bool, itemCount)
	total := 0
	for _, indexes := range indexGroups {
		for _, idx := range indexes {
			if idx < 0 || idx >= itemCount {
				return fmt.Errorf("grouping index %d out of range [0, %d)", idx, itemCount)
			}
			if seen[idx] {
				return fmt.Errorf("grouping index %d appears more than once", idx)
			}
			seen[idx] = true
			total++
		}
	}
	if total != itemCount {
		return fmt.Errorf("grouping covers %d of %d items", total, itemCount)
	}
	return nil
}
