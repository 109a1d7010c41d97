package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// SummarizerClient talks to the remote summarization service.
type SummarizerClient struct {
	caller  *Caller
	baseURL string
}

// NewSummarizerClient builds a SummarizerClient for the given host and port.
func NewSummarizerClient(caller *Caller, host string, port int) *SummarizerClient {
	return &SummarizerClient{
		caller:  caller,
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
	}
}

type editorConfig struct {
	Style string `json:"style"`
	Model string `json:"model"`
}

type summaryConfig struct {
	SummaryModel string        `json:"summary_model,omitempty"`
	EditorConfig *editorConfig `json:"editor_config,omitempty"`
}

type summaryPayload struct {
	Story         []string      `json:"story"`
	Density       string        `json:"density"`
	SummaryMethod string        `json:"summary_method"`
	Config        summaryConfig `json:"config"`
}

// Summarize produces one summary of the given density.
func (c *SummarizerClient) Summarize(ctx context.Context, corrID uuid.UUID, req supervisor.SummaryRequest) (supervisor.SummaryResult, error) {
	payload := summaryPayload{
		Story:         req.Story,
		Density:       req.Density,
		SummaryMethod: req.SummaryMethod,
		Config: summaryConfig{
			SummaryModel: req.SummaryModel,
		},
	}
	if req.Edit {
		payload.Config.EditorConfig = &editorConfig{
			Style: req.EditorStyle,
			Model: req.EditorModel,
		}
	}

	var result supervisor.SummaryResult
	if err := c.caller.Post(ctx, "summarizer", c.baseURL+"/summarize", corrID, payload, &result); err != nil {
		return supervisor.SummaryResult{}, err
	}
	return result, nil
}
