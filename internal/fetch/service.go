// Package fetch implements the end-to-end fetch pipeline and the summary
// flows built on top of its persisted results.
package fetch

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/pipeline"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Fanouter runs the category fan-out stage.
type Fanouter interface {
	Run(ctx context.Context, corrID uuid.UUID, fetchCfg supervisor.FetchConfig, categories []supervisor.Group) ([]supervisor.CategoryEntry, error)
}

// Response is the assembled outcome of one fetch run. NothingFound marks
// the canonical empty outcome: not an error, surfaced to the client as 204.
type Response struct {
	ConfigID          int64                      `json:"config_id"`
	Categories        []supervisor.CategoryEntry `json:"categories"`
	SkippedChannelIDs []int64                    `json:"skipped_channel_ids"`
	NothingFound      bool                       `json:"-"`
}

// SummarizeRequest asks for summaries of one story at several densities.
type SummarizeRequest struct {
	ChatID          int64     `json:"chat_id"`
	ConfigID        int64     `json:"config_id"`
	StoryID         uuid.UUID `json:"story_id"`
	RequiredDensity []string  `json:"required_density"`
	EditorStyle     string    `json:"editor_style,omitempty"`
}

// SummarizeResponse carries one summary per requested density plus the
// story's source references.
type SummarizeResponse struct {
	SummaryID  uuid.UUID                           `json:"summary_id"`
	Summary    map[string]supervisor.SummaryResult `json:"summary"`
	References []string                            `json:"references"`
}

// CategoryTitleRequest asks for a single title over a category's texts.
type CategoryTitleRequest struct {
	ConfigID int64    `json:"config_id"`
	Texts    []string `json:"texts"`
}

// densityTitle is the extra density appended to every summarize run so each
// persisted summary carries a title.
const densityTitle = "title"

// summaryParams splits a config's summary method into the method/model pair
// the summarizer expects. Plain method names carry no model; a concrete
// model name is served through the openai method.
func summaryParams(configured string) (method, model string) {
	switch configured {
	case "bart", "openai":
		return configured, ""
	default:
		return "openai", configured
	}
}

// Service drives the fetch pipeline end to end.
type Service struct {
	scraper    supervisor.Scraper
	grouper    pipeline.Grouper
	ranker     pipeline.Ranker
	fanout     Fanouter
	summarizer supervisor.Summarizer
	configs    supervisor.ConfigStore
	requests   supervisor.RequestStore
	stories    supervisor.StoryStore
	summaries  supervisor.SummaryStore
	clock      supervisor.Clock
	ids        supervisor.IDGenerator
	weights    map[string]float64
	logger     *zap.Logger
}

// New constructs a Service.
func New(
	scraper supervisor.Scraper,
	grouper pipeline.Grouper,
	ranker pipeline.Ranker,
	fanout Fanouter,
	summarizer supervisor.Summarizer,
	configs supervisor.ConfigStore,
	requests supervisor.RequestStore,
	stories supervisor.StoryStore,
	summaries supervisor.SummaryStore,
	clock supervisor.Clock,
	ids supervisor.IDGenerator,
	weights map[string]float64,
	logger *zap.Logger,
) *Service {
	return &Service{
		scraper:    scraper,
		grouper:    grouper,
		ranker:     ranker,
		fanout:     fanout,
		summarizer: summarizer,
		configs:    configs,
		requests:   requests,
		stories:    stories,
		summaries:  summaries,
		clock:      clock,
		ids:        ids,
		weights:    weights,
		logger:     logger,
	}
}

// Fetch runs one full pipeline: scrape, category round, category ranking,
// fan-out, request record. Category order is fixed once ranking completes
// and survives fan-out untouched.
func (s *Service) Fetch(ctx context.Context, corrID uuid.UUID, req supervisor.FetchRequest) (Response, error) {
	start := s.clock.Now()
	s.logger.Info("started fetching updates", zap.String("request_id", corrID.String()))

	cfg, err := s.retrieveConfig(ctx, req.ConfigID)
	if err != nil {
		metrics.ObserveFetch("error", s.clock.Now().Sub(start))
		return Response{}, err
	}

	parsed, err := s.scraper.Parse(ctx, corrID, req, cfg.EmbeddingSource)
	if err != nil {
		if supervisor.IsNoContent(err) {
			metrics.ObserveFetch("empty", s.clock.Now().Sub(start))
			return Response{ConfigID: cfg.ConfigID, NothingFound: true}, nil
		}
		metrics.ObserveFetch("error", s.clock.Now().Sub(start))
		return Response{}, err
	}
	if len(parsed.SkippedChannelIDs) > 0 {
		s.logger.Debug("a few channels were skipped by scraper",
			zap.Int64s("channel_ids", parsed.SkippedChannelIDs),
		)
	}
	if len(parsed.Sources) == 0 {
		metrics.ObserveFetch("empty", s.clock.Now().Sub(start))
		return Response{
			ConfigID:          cfg.ConfigID,
			SkippedChannelIDs: parsed.SkippedChannelIDs,
			NothingFound:      true,
		}, nil
	}

	categories, err := s.grouper.Clusterize(ctx, corrID, cfg.EmbeddingSource, cfg.CategorizeMethod, parsed.Sources)
	if err != nil {
		metrics.ObserveFetch("error", s.clock.Now().Sub(start))
		return Response{}, err
	}
	ranked := s.ranker.Rank(categories, s.weights)
	metrics.ObserveCategories(len(ranked))

	entries, err := s.fanout.Run(ctx, corrID, cfg, ranked)
	if err != nil {
		metrics.ObserveFetch("error", s.clock.Now().Sub(start))
		return Response{}, err
	}

	elapsed := s.clock.Now().Sub(start)
	s.logger.Info("finished fetching updates, sending response",
		zap.Duration("elapsed", elapsed),
	)
	if err := s.requests.Add(ctx, supervisor.Request{
		RequestID:   corrID,
		ChatID:      req.ChatID,
		RequestType: "fetch",
		Status:      "completed",
		TimePassed:  elapsed,
		ConfigID:    cfg.ConfigID,
	}); err != nil {
		metrics.ObserveFetch("error", elapsed)
		return Response{}, fmt.Errorf("record request: %w", err)
	}
	metrics.ObserveFetch("ok", elapsed)

	return Response{
		ConfigID:          cfg.ConfigID,
		Categories:        entries,
		SkippedChannelIDs: parsed.SkippedChannelIDs,
	}, nil
}

// Summarize produces one summary per requested density for a story, plus a
// title, and persists the results.
func (s *Service) Summarize(ctx context.Context, corrID uuid.UUID, req SummarizeRequest) (SummarizeResponse, error) {
	s.logger.Info("started serving summary request", zap.String("request_id", corrID.String()))

	cfg, err := s.configByID(ctx, req.ConfigID)
	if err != nil {
		return SummarizeResponse{}, err
	}
	summaryID, err := s.ids.NewID()
	if err != nil {
		return SummarizeResponse{}, fmt.Errorf("assign summary id: %w", err)
	}

	sources, err := s.stories.GetStorySources(ctx, req.StoryID)
	if err != nil {
		return SummarizeResponse{}, fmt.Errorf("load story sources: %w", err)
	}
	story := make([]string, 0, len(sources))
	references := make([]string, 0, len(sources))
	for _, src := range sources {
		story = append(story, src.Text)
		references = append(references, src.Reference)
	}

	densities := make([]string, 0, len(req.RequiredDensity)+1)
	for i := len(req.RequiredDensity) - 1; i >= 0; i-- {
		densities = append(densities, req.RequiredDensity[i])
	}
	densities = append(densities, densityTitle)

	method, model := summaryParams(cfg.SummaryMethod)
	results := make(map[string]supervisor.SummaryResult, len(densities))
	for _, density := range densities {
		s.logger.Debug("generating summary", zap.String("density", density))
		result, err := s.summarizer.Summarize(ctx, corrID, supervisor.SummaryRequest{
			Story:         story,
			Density:       density,
			SummaryMethod: method,
			SummaryModel:  model,
			EditorStyle:   req.EditorStyle,
			EditorModel:   cfg.EditorModel,
			Edit:          true,
		})
		if err != nil {
			return SummarizeResponse{}, err
		}
		results[density] = result
	}

	now := s.clock.Now()
	entities := make([]supervisor.Summary, 0, len(densities)-1)
	for _, density := range densities {
		if density == densityTitle {
			continue
		}
		entities = append(entities, supervisor.Summary{
			SummaryID:   summaryID,
			ChatID:      req.ChatID,
			StoryID:     req.StoryID,
			Summary:     results[density].Edited,
			Title:       results[densityTitle].Edited,
			Density:     density,
			ConfigID:    req.ConfigID,
			DateCreated: now,
		})
	}
	if err := s.summaries.Add(ctx, entities); err != nil {
		return SummarizeResponse{}, fmt.Errorf("persist summaries: %w", err)
	}

	s.logger.Info("sending response with summarized news")
	return SummarizeResponse{
		SummaryID:  summaryID,
		Summary:    results,
		References: references,
	}, nil
}

// CategoryTitle asks the summarizer for one unedited title over a
// category's texts.
func (s *Service) CategoryTitle(ctx context.Context, corrID uuid.UUID, req CategoryTitleRequest) (string, error) {
	cfg, err := s.configByID(ctx, req.ConfigID)
	if err != nil {
		return "", err
	}
	method, model := summaryParams(cfg.SummaryMethod)
	result, err := s.summarizer.Summarize(ctx, corrID, supervisor.SummaryRequest{
		Story:         req.Texts,
		Density:       "category",
		SummaryMethod: method,
		SummaryModel:  model,
		Edit:          false,
	})
	if err != nil {
		return "", err
	}
	return result.Raw, nil
}

// retrieveConfig picks the requested active config, or a random active one
// when no ID was requested.
func (s *Service) retrieveConfig(ctx context.Context, configID int64) (supervisor.FetchConfig, error) {
	configs, err := s.configs.List(ctx)
	if err != nil {
		return supervisor.FetchConfig{}, fmt.Errorf("list configs: %w", err)
	}
	active := configs[:0:0]
	for _, cfg := range configs {
		if !cfg.Inactive {
			active = append(active, cfg)
		}
	}
	if len(active) == 0 {
		return supervisor.FetchConfig{}, fmt.Errorf("no active fetch configs")
	}
	if configID == 0 {
		cfg := active[rand.Intn(len(active))]
		s.logger.Debug("using random config", zap.Int64("config_id", cfg.ConfigID))
		return cfg, nil
	}
	for _, cfg := range active {
		if cfg.ConfigID == configID {
			s.logger.Debug("using requested config", zap.Int64("config_id", cfg.ConfigID))
			return cfg, nil
		}
	}
	return supervisor.FetchConfig{}, fmt.Errorf("unknown config id %d", configID)
}

func (s *Service) configByID(ctx context.Context, configID int64) (supervisor.FetchConfig, error) {
	configs, err := s.configs.List(ctx)
	if err != nil {
		return supervisor.FetchConfig{}, fmt.Errorf("list configs: %w", err)
	}
	for _, cfg := range configs {
		if cfg.ConfigID == configID {
			return cfg, nil
		}
	}
	return supervisor.FetchConfig{}, fmt.Errorf("unknown config id %d", configID)
}
