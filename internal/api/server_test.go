// Package api contains tests for the HTTP surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/fetch"
	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/pipeline"
	"github.com/kiltia/inbrief-supervisor/internal/ranking"
	"github.com/kiltia/inbrief-supervisor/internal/storage/memory"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeScraper struct {
	result supervisor.ParseResult
	err    error
}

func (f *fakeScraper) Parse(_ context.Context, _ uuid.UUID, _ supervisor.FetchRequest, _ string) (supervisor.ParseResult, error) {
	return f.result, f.err
}

type itemPerStoryGrouper struct{}

func (itemPerStoryGrouper) Clusterize(
	_ context.Context,
	_ uuid.UUID,
	_, _ string,
	items []supervisor.Item,
) ([]supervisor.Group, error) {
	groups := make([]supervisor.Group, 0, len(items)+1)
	for _, item := range items {
		groups = append(groups, supervisor.Group{ID: uuid.New(), Items: []supervisor.Item{item}})
	}
	groups = append(groups, supervisor.Group{ID: uuid.New(), Noise: true})
	return groups, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, _ uuid.UUID, req supervisor.SummaryRequest) (supervisor.SummaryResult, error) {
	return supervisor.SummaryResult{
		Raw:    fmt.Sprintf("raw %s", req.Density),
		Edited: fmt.Sprintf("edited %s", req.Density),
	}, nil
}

type seqIDs struct{}

func (seqIDs) NewID() (uuid.UUID, error) { return uuid.NewRandom() }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, scraper *fakeScraper) (*httptest.Server, *memory.ScheduleStore) {
	t.Helper()

	stories := memory.NewStoryStore()
	schedules := memory.NewScheduleStore()
	weights := map[string]float64{"size_scorer": 1.0}
	ranker := ranking.NewRanker(ranking.DefaultScorers(), zap.NewNop())
	fanout := pipeline.New(
		itemPerStoryGrouper{},
		ranker,
		stories,
		seqIDs{},
		pipeline.Config{PoolSize: 2, FinalizeTimeout: 5 * time.Second, Weights: weights},
		zap.NewNop(),
	)
	service := fetch.New(
		scraper,
		itemPerStoryGrouper{},
		ranker,
		fanout,
		fakeSummarizer{},
		memory.NewConfigStore(supervisor.FetchConfig{ConfigID: 1, EmbeddingSource: "openai"}),
		memory.NewRequestStore(),
		stories,
		memory.NewSummaryStore(),
		fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		seqIDs{},
		weights,
		zap.NewNop(),
	)

	server := NewServer(service, schedules, seqIDs{}, fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}, zap.NewNop())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, schedules
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{})
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}

func TestFetchReturnsAssembledCategories(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{result: supervisor.ParseResult{
		Sources: []supervisor.Item{
			{SourceID: 1, ChannelID: 1, Text: "a"},
			{SourceID: 2, ChannelID: 1, Text: "b"},
		},
	}})

	resp := postJSON(t, ts.URL+"/v1/fetch", supervisor.FetchRequest{ChatID: 5})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body fetch.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, int64(1), body.ConfigID)
	require.Len(t, body.Categories, 2)
}

func TestFetchNothingFoundIs204(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{err: &supervisor.NoContentError{Op: "scraper"}})

	resp := postJSON(t, ts.URL+"/v1/fetch", supervisor.FetchRequest{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFetchUnavailableComponentIs503(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{err: &supervisor.UnavailableError{Op: "scraper", StatusCode: 502}})

	resp := postJSON(t, ts.URL+"/v1/fetch", supervisor.FetchRequest{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body componentError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "scraper", body.Component)
	require.Equal(t, 502, body.ComponentStatusCode)
}

func TestFetchRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{})
	resp, err := http.Post(ts.URL+"/v1/fetch", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleLifecycle(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{})

	// Create: the entry starts inactive.
	resp := postJSON(t, ts.URL+"/v1/schedules", addScheduleRequest{
		PresetID: uuid.New(),
		ChatID:   7,
		UserID:   42,
		Cron:     "*/5 * * * *",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NoError(t, resp.Body.Close())
	scheduleID, err := uuid.Parse(created["schedule_id"])
	require.NoError(t, err)

	// Read it back.
	getResp, err := http.Get(fmt.Sprintf("%s/v1/schedules/%s", ts.URL, scheduleID))
	require.NoError(t, err)
	var entry supervisor.ScheduleEntry
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&entry))
	require.NoError(t, getResp.Body.Close())
	require.Equal(t, scheduleID, entry.ScheduleID)
	require.Equal(t, int64(7), entry.ChatID)
	require.False(t, entry.Active)

	// Activate via PATCH.
	active := true
	patchBody, err := json.Marshal(updateScheduleRequest{ScheduleID: scheduleID, Active: &active})
	require.NoError(t, err)
	patchReq, err := http.NewRequest(http.MethodPatch, ts.URL+"/v1/schedules", bytes.NewReader(patchBody))
	require.NoError(t, err)
	patchReq.Header.Set("Content-Type", "application/json")
	patchResp, err := http.DefaultClient.Do(patchReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, patchResp.StatusCode)
	require.NoError(t, patchResp.Body.Close())

	// The chat listing reflects the change.
	listResp, err := http.Get(ts.URL + "/v1/users/7/schedules")
	require.NoError(t, err)
	var listing struct {
		Schedules []supervisor.ScheduleEntry `json:"schedules"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listing))
	require.NoError(t, listResp.Body.Close())
	require.Len(t, listing.Schedules, 1)
	require.True(t, listing.Schedules[0].Active)
}

func TestGetScheduleNotFound(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{})
	resp, err := http.Get(fmt.Sprintf("%s/v1/schedules/%s", ts.URL, uuid.New()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDIsEchoedWhenProvided(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, &fakeScraper{err: &supervisor.NoContentError{Op: "scraper"}})

	corrID := uuid.New()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/fetch", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", corrID.String())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, corrID.String(), resp.Header.Get("X-Request-ID"))
}
