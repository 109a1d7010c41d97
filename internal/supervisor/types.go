// Package supervisor defines the domain types and collaborator contracts
// shared by the fetch pipeline and the scheduler.
package supervisor

import (
	"time"

	"github.com/google/uuid"
)

// Item is one raw record returned by the scraper. Reactions stay raw JSON
// (a list of {type, count} objects) and are decoded only by the scorer that
// needs them.
type Item struct {
	SourceID   int64                `json:"source_id"`
	ChannelID  int64                `json:"channel_id"`
	Text       string               `json:"text"`
	Date       time.Time            `json:"date"`
	Reference  string               `json:"reference"`
	Reactions  string               `json:"reactions,omitempty"`
	Comments   []string             `json:"comments,omitempty"`
	Views      int64                `json:"views"`
	Embeddings map[string][]float64 `json:"embeddings,omitempty"`
}

// Group is a set of items clustered together by one grouping round. The
// reserved trailing group of a grouping response carries the unclustered
// leftovers and is flagged Noise.
type Group struct {
	ID    uuid.UUID
	Items []Item
	Noise bool
}

// ScoredGroup pairs a group with its accumulated ranking score.
type ScoredGroup struct {
	Score float64
	Group Group
}

// StoryEntry is one story reference in a fetch response.
type StoryEntry struct {
	ID    uuid.UUID `json:"uuid"`
	Noise bool      `json:"noise"`
}

// CategoryEntry is one fully fanned-out category in a fetch response.
type CategoryEntry struct {
	ID      uuid.UUID    `json:"uuid"`
	Stories []StoryEntry `json:"stories"`
}

// FetchConfig selects the embedding source and grouping methods for one
// fetch run. Rows live in the configs table.
type FetchConfig struct {
	ConfigID         int64  `json:"config_id"`
	EmbeddingSource  string `json:"embedding_source"`
	CategorizeMethod string `json:"categorize_method"`
	LinkingMethod    string `json:"linking_method"`
	SummaryMethod    string `json:"summary_method"`
	EditorModel      string `json:"editor_model"`
	Inactive         bool   `json:"inactive"`
}

// Story links a clustered story to the request and category that produced it.
type Story struct {
	StoryID    uuid.UUID
	RequestID  uuid.UUID
	CategoryID uuid.UUID
}

// StorySource is one source membership row for a story.
type StorySource struct {
	StoryID   uuid.UUID
	SourceID  int64
	ChannelID int64
}

// Request records one completed pipeline run.
type Request struct {
	RequestID   uuid.UUID
	ChatID      int64
	RequestType string
	Status      string
	TimePassed  time.Duration
	ConfigID    int64
}

// Summary is one persisted summary row.
type Summary struct {
	SummaryID   uuid.UUID
	ChatID      int64
	StoryID     uuid.UUID
	Summary     string
	Title       string
	Density     string
	ConfigID    int64
	DateCreated time.Time
}

// ScheduleEntry is one row of the schedule table. Entries are soft-deleted
// via Deleted, never removed in place.
type ScheduleEntry struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	PresetID   uuid.UUID `json:"preset_id"`
	ChatID     int64     `json:"chat_id"`
	UserID     int64     `json:"user_id"`
	Cron       string    `json:"cron"`
	LastRun    time.Time `json:"last_run"`
	Active     bool      `json:"active"`
	Deleted    bool      `json:"deleted"`
}
