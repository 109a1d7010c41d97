package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// LinkerClient talks to the remote grouping service.
type LinkerClient struct {
	caller  *Caller
	baseURL string
}

// NewLinkerClient builds a LinkerClient for the given host and port.
func NewLinkerClient(caller *Caller, host string, port int) *LinkerClient {
	return &LinkerClient{
		caller:  caller,
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
	}
}

type linkingConfig struct {
	EmbeddingSource string `json:"embedding_source"`
	Method          string `json:"method"`
	Scorer          string `json:"scorer"`
	Metric          string `json:"metric"`
}

type groupingPayload struct {
	Entries  []supervisor.Item `json:"entries"`
	Config   linkingConfig     `json:"config"`
	Settings map[string]any    `json:"settings"`
}

type groupingResult struct {
	StoriesNums [][]int `json:"stories_nums"`
}

type groupingResponse struct {
	Results []groupingResult `json:"results"`
}

// GroupItems performs one grouping call and returns the flat index groups.
// The last sublist of the response is the noise group.
func (c *LinkerClient) GroupItems(ctx context.Context, corrID uuid.UUID, req supervisor.GroupingRequest) ([][]int, error) {
	const op = "linker"

	payload := groupingPayload{
		Entries: req.Items,
		Config: linkingConfig{
			EmbeddingSource: req.EmbeddingSource,
			Method:          req.Method,
			Scorer:          req.Scorer,
			Metric:          req.Metric,
		},
		Settings: req.Settings,
	}

	var resp groupingResponse
	if err := c.caller.Post(ctx, op, c.baseURL+"/get_stories", corrID, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &supervisor.UnexpectedError{Op: op, Err: fmt.Errorf("empty results list")}
	}
	return resp.Results[0].StoriesNums, nil
}
