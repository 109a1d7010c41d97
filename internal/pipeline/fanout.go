// Package pipeline implements the bounded fan-out of per-category story
// grouping and persistence, with a single finalizer reassembling results in
// the category order fixed before fan-out began.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// FailurePolicy decides what one worker's category failure does to the rest
// of the batch.
type FailurePolicy string

const (
	// PolicyCancel propagates the first failure and cancels the siblings.
	// Categories already persisted stay persisted: at-least-once, not
	// exactly-once, on failure.
	PolicyCancel FailurePolicy = "cancel"
	// PolicyIsolate logs the failure and leaves the category's slot empty;
	// siblings are unaffected.
	PolicyIsolate FailurePolicy = "isolate"
)

// Grouper runs one story-grouping round for a category.
type Grouper interface {
	Clusterize(ctx context.Context, corrID uuid.UUID, embeddingSource, method string, items []supervisor.Item) ([]supervisor.Group, error)
}

// Ranker orders story groups by weighted score.
type Ranker interface {
	Rank(groups []supervisor.Group, weights map[string]float64, requiredScorers ...string) []supervisor.Group
}

// Config controls Fanout behavior.
type Config struct {
	PoolSize        int
	FinalizeTimeout time.Duration
	FailurePolicy   FailurePolicy
	Weights         map[string]float64
}

// Fanout runs the category fan-out stage of one fetch.
type Fanout struct {
	grouper Grouper
	ranker  Ranker
	stories supervisor.StoryStore
	ids     supervisor.IDGenerator
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Fanout.
func New(
	grouper Grouper,
	ranker Ranker,
	stories supervisor.StoryStore,
	ids supervisor.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Fanout {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = PolicyCancel
	}
	return &Fanout{
		grouper: grouper,
		ranker:  ranker,
		stories: stories,
		ids:     ids,
		cfg:     cfg,
		logger:  logger,
	}
}

type completion struct {
	categoryID uuid.UUID
	stories    []supervisor.Group
	failed     bool
}

// Run fans the categories out to the worker pool and returns one entry per
// non-empty category, in the order the categories arrived. Slot assignment
// is fixed before any worker starts, so completion order never leaks into
// the result.
func (f *Fanout) Run(
	ctx context.Context,
	corrID uuid.UUID,
	fetchCfg supervisor.FetchConfig,
	categories []supervisor.Group,
) ([]supervisor.CategoryEntry, error) {
	indexMap := make(map[uuid.UUID]int)
	for _, category := range categories {
		if len(category.Items) > 0 {
			indexMap[category.ID] = len(indexMap)
		}
	}
	entries := make([]supervisor.CategoryEntry, len(indexMap))
	if len(indexMap) == 0 {
		return entries, nil
	}

	backlog := newBacklog(categories)
	completions := make(chan completion, len(indexMap))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < f.cfg.PoolSize; i++ {
		g.Go(func() error {
			return f.runWorker(gctx, corrID, fetchCfg, backlog, completions)
		})
	}
	g.Go(func() error {
		return f.finalize(gctx, corrID, entries, indexMap, completions)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// runWorker drains the shared backlog until it is empty. Empty categories
// are skipped; they have no slot assigned.
func (f *Fanout) runWorker(
	ctx context.Context,
	corrID uuid.UUID,
	fetchCfg supervisor.FetchConfig,
	backlog *backlog,
	completions chan<- completion,
) error {
	for {
		category, ok := backlog.pop()
		if !ok {
			return nil
		}
		if len(category.Items) == 0 {
			continue
		}

		metrics.IncActiveWorkers()
		stories, err := f.processCategory(ctx, corrID, fetchCfg, category)
		metrics.DecActiveWorkers()

		if err != nil {
			if f.cfg.FailurePolicy == PolicyIsolate {
				f.logger.Warn("category failed, isolating",
					zap.String("category_id", category.ID.String()),
					zap.Error(err),
				)
				if err := send(ctx, completions, completion{categoryID: category.ID, failed: true}); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("category %s: %w", category.ID, err)
		}

		if err := send(ctx, completions, completion{categoryID: category.ID, stories: stories}); err != nil {
			return err
		}
	}
}

// processCategory runs the story round for one category: date-sort, remote
// grouping, ranking of clustered stories (noise stays last), and
// persistence of the story-to-category linkage.
func (f *Fanout) processCategory(
	ctx context.Context,
	corrID uuid.UUID,
	fetchCfg supervisor.FetchConfig,
	category supervisor.Group,
) ([]supervisor.Group, error) {
	items := make([]supervisor.Item, len(category.Items))
	copy(items, category.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.Before(items[j].Date)
	})

	groups, err := f.grouper.Clusterize(ctx, corrID, fetchCfg.EmbeddingSource, fetchCfg.LinkingMethod, items)
	if err != nil {
		return nil, err
	}

	clustered := make([]supervisor.Group, 0, len(groups))
	noise := make([]supervisor.Group, 0, 1)
	for _, group := range groups {
		if group.Noise {
			noise = append(noise, group)
		} else {
			clustered = append(clustered, group)
		}
	}
	stories := f.ranker.Rank(clustered, f.cfg.Weights)
	stories = append(stories, noise...)

	storyRows := make([]supervisor.Story, 0, len(clustered))
	for _, story := range stories {
		if story.Noise {
			continue
		}
		storyRows = append(storyRows, supervisor.Story{
			StoryID:    story.ID,
			RequestID:  corrID,
			CategoryID: category.ID,
		})
	}
	if len(storyRows) > 0 {
		if err := f.stories.AddStories(ctx, storyRows); err != nil {
			return nil, fmt.Errorf("persist stories: %w", err)
		}
	}

	return stories, nil
}

// finalize consumes exactly one completion per non-empty category and
// writes each into its pre-assigned slot. The wait is bounded: a dropped
// completion fails the run instead of hanging it forever.
func (f *Fanout) finalize(
	ctx context.Context,
	corrID uuid.UUID,
	entries []supervisor.CategoryEntry,
	indexMap map[uuid.UUID]int,
	completions <-chan completion,
) error {
	timer := time.NewTimer(f.cfg.FinalizeTimeout)
	defer timer.Stop()

	for i := 0; i < len(indexMap); i++ {
		select {
		case done := <-completions:
			entry, err := f.finalizeCategory(ctx, corrID, done)
			if err != nil {
				return err
			}
			entries[indexMap[done.categoryID]] = entry
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("finalize timed out after %s with %d of %d categories done",
				f.cfg.FinalizeTimeout, i, len(indexMap))
		}
	}
	return nil
}

// finalizeCategory persists source membership rows for every story. Items
// of the noise group become single-item stories with fresh identifiers,
// distinct from the clustered stories persisted by the workers.
func (f *Fanout) finalizeCategory(ctx context.Context, corrID uuid.UUID, done completion) (supervisor.CategoryEntry, error) {
	entry := supervisor.CategoryEntry{ID: done.categoryID}
	if done.failed {
		return entry, nil
	}

	var (
		noiseRows  []supervisor.Story
		sourceRows []supervisor.StorySource
	)
	for _, story := range done.stories {
		if !story.Noise {
			entry.Stories = append(entry.Stories, supervisor.StoryEntry{ID: story.ID})
			for _, item := range story.Items {
				sourceRows = append(sourceRows, supervisor.StorySource{
					StoryID:   story.ID,
					SourceID:  item.SourceID,
					ChannelID: item.ChannelID,
				})
			}
			continue
		}
		for _, item := range story.Items {
			id, err := f.ids.NewID()
			if err != nil {
				return entry, fmt.Errorf("assign noise story id: %w", err)
			}
			entry.Stories = append(entry.Stories, supervisor.StoryEntry{ID: id, Noise: true})
			noiseRows = append(noiseRows, supervisor.Story{
				StoryID:    id,
				RequestID:  corrID,
				CategoryID: done.categoryID,
			})
			sourceRows = append(sourceRows, supervisor.StorySource{
				StoryID:   id,
				SourceID:  item.SourceID,
				ChannelID: item.ChannelID,
			})
		}
	}

	if len(noiseRows) > 0 {
		if err := f.stories.AddStories(ctx, noiseRows); err != nil {
			return entry, fmt.Errorf("persist noise stories: %w", err)
		}
	}
	if len(sourceRows) > 0 {
		if err := f.stories.AddStorySources(ctx, sourceRows); err != nil {
			return entry, fmt.Errorf("persist story sources: %w", err)
		}
	}

	clustered := 0
	noise := 0
	for _, s := range entry.Stories {
		if s.Noise {
			noise++
		} else {
			clustered++
		}
	}
	metrics.ObserveStories("clustered", clustered)
	metrics.ObserveStories("noise", noise)

	return entry, nil
}

func send(ctx context.Context, completions chan<- completion, done completion) error {
	select {
	case completions <- done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backlog is a shared stack of categories safe for concurrent draining.
// Each category is delivered to exactly one worker.
type backlog struct {
	mu     sync.Mutex
	groups []supervisor.Group
}

func newBacklog(groups []supervisor.Group) *backlog {
	copied := make([]supervisor.Group, len(groups))
	copy(copied, groups)
	return &backlog{groups: copied}
}

func (b *backlog) pop() (supervisor.Group, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.groups) == 0 {
		return supervisor.Group{}, false
	}
	group := b.groups[len(b.groups)-1]
	b.groups = b.groups[:len(b.groups)-1]
	return group, true
}
