// Package ranking orders groups by a weighted combination of independent
// scoring strategies.
package ranking

import (
	"encoding/json"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Scorer computes one raw metric per group. Each registered scorer
// contributes one weighted, normalized term to a group's final score.
type Scorer interface {
	Name() string
	Metric(group supervisor.Group) float64
}

// DefaultScorers returns the statically declared scorer set.
func DefaultScorers() []Scorer {
	return []Scorer{
		SizeScorer{},
		ReactionScorer{},
		CommentScorer{},
		ViewScorer{},
	}
}

// SizeScorer scores a group by its item count.
type SizeScorer struct{}

// Name returns the scorer's weight key.
func (SizeScorer) Name() string { return "size_scorer" }

// Metric returns the number of items in the group.
func (SizeScorer) Metric(group supervisor.Group) float64 {
	return float64(len(group.Items))
}

// ReactionScorer scores a group by the total reaction count across items.
type ReactionScorer struct{}

// Name returns the scorer's weight key.
func (ReactionScorer) Name() string { return "reaction_scorer" }

type reactionEntry struct {
	Count int64 `json:"count"`
}

// Metric sums the reaction counts of every item. Items with missing or
// malformed reaction payloads contribute zero.
func (ReactionScorer) Metric(group supervisor.Group) float64 {
	var total int64
	for _, item := range group.Items {
		if item.Reactions == "" {
			continue
		}
		var entries []reactionEntry
		if err := json.Unmarshal([]byte(item.Reactions), &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			total += entry.Count
		}
	}
	return float64(total)
}

// CommentScorer scores a group by the total comment count across items.
type CommentScorer struct{}

// Name returns the scorer's weight key.
func (CommentScorer) Name() string { return "comment_scorer" }

// Metric sums the comment counts of every item.
func (CommentScorer) Metric(group supervisor.Group) float64 {
	var total int
	for _, item := range group.Items {
		total += len(item.Comments)
	}
	return float64(total)
}

// ViewScorer scores a group by the total view count across items.
type ViewScorer struct{}

// Name returns the scorer's weight key.
func (ViewScorer) Name() string { return "view_scorer" }

// Metric sums the view counts of every item.
func (ViewScorer) Metric(group supervisor.Group) float64 {
	var total int64
	for _, item := range group.Items {
		total += item.Views
	}
	return float64(total)
}
