package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// ScraperClient talks to the remote scrape service.
type ScraperClient struct {
	caller  *Caller
	baseURL string
}

// NewScraperClient builds a ScraperClient for the given host and port.
func NewScraperClient(caller *Caller, host string, port int) *ScraperClient {
	return &ScraperClient{
		caller:  caller,
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
	}
}

type parsePayload struct {
	ChatID            int64    `json:"chat_id"`
	Channels          []string `json:"channels"`
	EndDate           string   `json:"end_date,omitempty"`
	OffsetDate        string   `json:"offset_date,omitempty"`
	RequiredEmbedders []string `json:"required_embedders"`
}

// requiredEmbedders maps an embedding source to the embedders the scraper
// must run over the parsed items.
func requiredEmbedders(embeddingSource string) []string {
	switch embeddingSource {
	case "ft+mlm":
		return []string{"fast-text-embedder", "mini-lm-embedder"}
	case "openai":
		return []string{"open-ai-embedder"}
	case "mlm":
		return []string{"mini-lm-embedder"}
	default:
		return nil
	}
}

// Parse asks the scraper for raw items. A 204 surfaces as a NoContentError,
// the canonical "nothing found" outcome.
func (c *ScraperClient) Parse(
	ctx context.Context,
	corrID uuid.UUID,
	req supervisor.FetchRequest,
	embeddingSource string,
) (supervisor.ParseResult, error) {
	payload := parsePayload{
		ChatID:            req.ChatID,
		Channels:          req.Channels,
		EndDate:           req.EndDate,
		OffsetDate:        req.OffsetDate,
		RequiredEmbedders: requiredEmbedders(embeddingSource),
	}

	var result supervisor.ParseResult
	if err := c.caller.Post(ctx, "scraper", c.baseURL+"/parse", corrID, payload, &result); err != nil {
		return supervisor.ParseResult{}, err
	}
	return result, nil
}
