package supervisor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FetchRequest is the inbound request that starts one pipeline run.
type FetchRequest struct {
	ChatID     int64    `json:"chat_id"`
	ConfigID   int64    `json:"config_id,omitempty"`
	Channels   []string `json:"channels"`
	EndDate    string   `json:"end_date,omitempty"`
	OffsetDate string   `json:"offset_date,omitempty"`
}

// ParseResult is the scraper's output: raw items plus the channels it
// could not serve. An empty Sources slice is the canonical "nothing found".
type ParseResult struct {
	Sources           []Item  `json:"sources"`
	SkippedChannelIDs []int64 `json:"skipped_channel_ids"`
}

// GroupingRequest carries one grouping round's inputs to the linker.
type GroupingRequest struct {
	Items           []Item
	EmbeddingSource string
	Method          string
	Scorer          string
	Metric          string
	Settings        map[string]any
}

// SummaryRequest asks the summarizer for one summary of a story.
type SummaryRequest struct {
	Story         []string
	Density       string
	SummaryMethod string
	SummaryModel  string
	EditorStyle   string
	EditorModel   string
	Edit          bool
}

// SummaryResult is the summarizer's decoded response.
type SummaryResult struct {
	Raw    string `json:"raw"`
	Edited string `json:"edited"`
}

// Scraper pulls raw items from the remote scrape service. The embedding
// source decides which embedders the scraper must run over the items.
type Scraper interface {
	Parse(ctx context.Context, corrID uuid.UUID, req FetchRequest, embeddingSource string) (ParseResult, error)
}

// Linker performs one remote grouping call and returns flat index groups.
// The last sublist is the noise group.
type Linker interface {
	GroupItems(ctx context.Context, corrID uuid.UUID, req GroupingRequest) ([][]int, error)
}

// Summarizer produces one summary per call; it is an opaque remote service.
type Summarizer interface {
	Summarize(ctx context.Context, corrID uuid.UUID, req SummaryRequest) (SummaryResult, error)
}

// StoryStore persists story rows and their source membership.
type StoryStore interface {
	AddStories(ctx context.Context, stories []Story) error
	AddStorySources(ctx context.Context, sources []StorySource) error
	GetStorySources(ctx context.Context, storyID uuid.UUID) ([]SourceText, error)
}

// SourceText is one story source row as read back for summarization.
type SourceText struct {
	StoryID   uuid.UUID
	Text      string
	Reference string
}

// ScheduleStore reads and mutates the schedule table.
type ScheduleStore interface {
	List(ctx context.Context) ([]ScheduleEntry, error)
	ListByChat(ctx context.Context, chatID int64) ([]ScheduleEntry, error)
	Get(ctx context.Context, scheduleID uuid.UUID) (ScheduleEntry, error)
	Add(ctx context.Context, entry ScheduleEntry) error
	Update(ctx context.Context, entry ScheduleEntry, fields []string) error
}

// RequestStore records completed pipeline runs.
type RequestStore interface {
	Add(ctx context.Context, request Request) error
}

// ConfigStore reads fetch configurations.
type ConfigStore interface {
	List(ctx context.Context) ([]FetchConfig, error)
}

// SummaryStore persists generated summaries.
type SummaryStore interface {
	Add(ctx context.Context, summaries []Summary) error
}

// Broadcaster publishes scheduler events and reports how many subscribers
// are listening on a channel.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	SubscriberCount(ctx context.Context, channel string) (int64, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces group/story identifiers.
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}
