package ranking

import (
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Ranker combines the registered scorers into one stable descending order.
type Ranker struct {
	scorers []Scorer
	logger  *zap.Logger
}

// NewRanker builds a Ranker over the given scorer set.
func NewRanker(scorers []Scorer, logger *zap.Logger) *Ranker {
	return &Ranker{scorers: scorers, logger: logger}
}

// Rank returns the groups reordered by descending score. The input slice is
// never mutated. requiredScorers is an allow-list filter over the registered
// set; names matching no registered scorer are ignored.
func (r *Ranker) Rank(groups []supervisor.Group, weights map[string]float64, requiredScorers ...string) []supervisor.Group {
	scored := r.RankScored(groups, weights, requiredScorers...)
	out := make([]supervisor.Group, len(scored))
	for i, sg := range scored {
		out[i] = sg.Group
	}
	return out
}

// RankScored is Rank with the accumulated scores kept alongside each group.
func (r *Ranker) RankScored(groups []supervisor.Group, weights map[string]float64, requiredScorers ...string) []supervisor.ScoredGroup {
	scored := make([]supervisor.ScoredGroup, len(groups))
	for i, g := range groups {
		scored[i] = supervisor.ScoredGroup{Group: g}
	}

	for _, scorer := range r.activeScorers(requiredScorers) {
		boost := weights[scorer.Name()]
		metrics := make([]float64, len(scored))
		maxMetric := 0.0
		for i, sg := range scored {
			metrics[i] = scorer.Metric(sg.Group)
			if metrics[i] > maxMetric {
				maxMetric = metrics[i]
			}
		}
		if maxMetric == 0 {
			maxMetric = 1
		}
		for i := range scored {
			scored[i].Score += (metrics[i] / maxMetric) * boost
		}
	}

	// Stable sort keeps equal-score groups in input order, so identical
	// inputs always produce identical output.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if ce := r.logger.Check(zap.DebugLevel, "ranking results"); ce != nil {
		pairs := make([]zap.Field, 0, len(scored))
		for _, sg := range scored {
			pairs = append(pairs, zap.Float64(sg.Group.ID.String(), sg.Score))
		}
		ce.Write(pairs...)
	}

	return scored
}

func (r *Ranker) activeScorers(required []string) []Scorer {
	if len(required) == 0 {
		return r.scorers
	}
	active := make([]Scorer, 0, len(r.scorers))
	for _, scorer := range r.scorers {
		if slices.Contains(required, scorer.Name()) {
			active = append(active, scorer)
		}
	}
	return active
}
