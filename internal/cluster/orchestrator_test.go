// Package cluster contains tests for the grouping round orchestration.
package cluster

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/config"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

type fakeLinker struct {
	groups [][]int
	err    error
	gotReq supervisor.GroupingRequest
}

func (f *fakeLinker) GroupItems(_ context.Context, _ uuid.UUID, req supervisor.GroupingRequest) ([][]int, error) {
	f.gotReq = req
	return f.groups, f.err
}

type fakeIDs struct{}

func (fakeIDs) NewID() (uuid.UUID, error) { return uuid.NewRandom() }

func testLinking() config.LinkingTable {
	return config.LinkingTable{
		"openai": {
			"dbscan": {
				Scorer: "silhouette",
				Metric: "euclidean",
				Config: map[string]any{"eps": 0.5},
			},
		},
	}
}

func items(n int) []supervisor.Item {
	out := make([]supervisor.Item, n)
	for i := range out {
		out[i] = supervisor.Item{SourceID: int64(i + 1)}
	}
	return out
}

func TestClusterizeFlagsTrailingGroupAsNoise(t *testing.T) {
	t.Parallel()

	linker := &fakeLinker{groups: [][]int{{0, 2}, {1}, {3}}}
	orch := New(linker, fakeIDs{}, testLinking(), zap.NewNop())

	groups, err := orch.Clusterize(context.Background(), uuid.New(), "openai", "dbscan", items(4))
	require.NoError(t, err)
	require.Len(t, groups, 3)

	require.False(t, groups[0].Noise)
	require.False(t, groups[1].Noise)
	require.True(t, groups[2].Noise)

	require.Equal(t, []int64{1, 3}, sourceIDs(groups[0]))
	require.Equal(t, []int64{2}, sourceIDs(groups[1]))
	require.Equal(t, []int64{4}, sourceIDs(groups[2]))

	seen := map[uuid.UUID]bool{}
	for _, g := range groups {
		require.NotEqual(t, uuid.Nil, g.ID)
		require.False(t, seen[g.ID])
		seen[g.ID] = true
	}
}

func TestClusterizePassesResolvedSettings(t *testing.T) {
	t.Parallel()

	linker := &fakeLinker{groups: [][]int{{0}, {1}}}
	orch := New(linker, fakeIDs{}, testLinking(), zap.NewNop())

	_, err := orch.Clusterize(context.Background(), uuid.New(), "openai", "dbscan", items(2))
	require.NoError(t, err)
	require.Equal(t, "silhouette", linker.gotReq.Scorer)
	require.Equal(t, "euclidean", linker.gotReq.Metric)
	require.Equal(t, map[string]any{"eps": 0.5}, linker.gotReq.Settings)
}

func TestClusterizeUnknownSettings(t *testing.T) {
	t.Parallel()

	orch := New(&fakeLinker{}, fakeIDs{}, testLinking(), zap.NewNop())

	_, err := orch.Clusterize(context.Background(), uuid.New(), "ft+mlm", "dbscan", items(1))
	require.ErrorContains(t, err, "unknown embedding source")

	_, err = orch.Clusterize(context.Background(), uuid.New(), "openai", "affinity", items(1))
	require.ErrorContains(t, err, "unknown clustering method")
}

func TestClusterizeRejectsIncompleteCoverage(t *testing.T) {
	t.Parallel()

	cases := map[string][][]int{
		"missing index":   {{0}, {2}},
		"duplicate index": {{0, 1}, {1}, {2}},
		"out of range":    {{0, 1}, {5}},
		"negative index":  {{-1}, {0, 1, 2}},
	}
	for name, groups := range cases {
		groups := groups
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			orch := New(&fakeLinker{groups: groups}, fakeIDs{}, testLinking(), zap.NewNop())
			_, err := orch.Clusterize(context.Background(), uuid.New(), "openai", "dbscan", items(3))
			require.Error(t, err)
			var unexpected *supervisor.UnexpectedError
			require.ErrorAs(t, err, &unexpected)
			require.Equal(t, "linker", unexpected.Op)
		})
	}
}

func sourceIDs(group supervisor.Group) []int64 {
	out := make([]int64, 0, len(group.Items))
	for _, item := range group.Items {
		out = append(out, item.SourceID)
	}
	return out
}
