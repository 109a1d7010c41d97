// Package remote contains tests for the upstream HTTP call classification.
package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

func TestCallerPostDecodesOK(t *testing.T) {
	t.Parallel()

	corrID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, corrID.String(), r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"value":"hello"}`)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	var out struct {
		Value string `json:"value"`
	}
	err := caller.Post(context.Background(), "scraper", srv.URL, corrID, map[string]string{"k": "v"}, &out)
	require.NoError(t, err)
	require.Equal(t, "hello", out.Value)
}

func TestCallerPostNoContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	err := caller.Post(context.Background(), "scraper", srv.URL, uuid.New(), nil, nil)
	require.Error(t, err)
	require.True(t, supervisor.IsNoContent(err))
	require.False(t, supervisor.IsUnavailable(err))
}

func TestCallerPostUnavailable(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		caller := NewCaller(5*time.Second, zap.NewNop())
		err := caller.Post(context.Background(), "linker", srv.URL, uuid.New(), nil, nil)
		srv.Close()

		require.Error(t, err, "status %d", status)
		require.True(t, supervisor.IsUnavailable(err), "status %d", status)
		var unavailable *supervisor.UnavailableError
		require.ErrorAs(t, err, &unavailable)
		require.Equal(t, "linker", unavailable.Op)
		require.Equal(t, status, unavailable.StatusCode)
	}
}

func TestCallerPostMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("not json")); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	var out map[string]any
	err := caller.Post(context.Background(), "summarizer", srv.URL, uuid.New(), nil, &out)
	require.Error(t, err)
	var unexpected *supervisor.UnexpectedError
	require.ErrorAs(t, err, &unexpected)
	require.Equal(t, "summarizer", unexpected.Op)
}

func TestLinkerClientGroupItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_stories", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"results":[{"stories_nums":[[0,2],[1],[3]]}]}`)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	client := NewLinkerClient(caller, hostOf(t, srv.URL), portOf(t, srv.URL))

	groups, err := client.GroupItems(context.Background(), uuid.New(), supervisor.GroupingRequest{
		Items:           []supervisor.Item{{SourceID: 1}, {SourceID: 2}, {SourceID: 3}, {SourceID: 4}},
		EmbeddingSource: "openai",
		Method:          "dbscan",
	})
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 2}, {1}, {3}}, groups)
}

func TestLinkerClientEmptyResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"results":[]}`)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	client := NewLinkerClient(caller, hostOf(t, srv.URL), portOf(t, srv.URL))

	_, err := client.GroupItems(context.Background(), uuid.New(), supervisor.GroupingRequest{})
	require.Error(t, err)
	var unexpected *supervisor.UnexpectedError
	require.ErrorAs(t, err, &unexpected)
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname()
}

func portOf(t *testing.T, rawURL string) int {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}
