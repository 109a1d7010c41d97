// Package memory provides in-memory store implementations for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// StoryStore keeps story and membership rows in memory.
type StoryStore struct {
	mu      sync.RWMutex
	stories []supervisor.Story
	sources []supervisor.StorySource
	texts   map[uuid.UUID][]supervisor.SourceText
}

// NewStoryStore creates an empty StoryStore.
func NewStoryStore() *StoryStore {
	return &StoryStore{texts: make(map[uuid.UUID][]supervisor.SourceText)}
}

// AddStories appends story rows.
func (s *StoryStore) AddStories(_ context.Context, stories []supervisor.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories = append(s.stories, stories...)
	return nil
}

// AddStorySources appends membership rows.
func (s *StoryStore) AddStorySources(_ context.Context, sources []supervisor.StorySource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, sources...)
	return nil
}

// GetStorySources returns the texts seeded via SetSourceTexts.
func (s *StoryStore) GetStorySources(_ context.Context, storyID uuid.UUID) ([]supervisor.SourceText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texts[storyID], nil
}

// SetSourceTexts seeds the rows GetStorySources returns for a story.
func (s *StoryStore) SetSourceTexts(storyID uuid.UUID, texts []supervisor.SourceText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[storyID] = texts
}

// Stories returns the recorded story rows.
func (s *StoryStore) Stories() []supervisor.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.Story, len(s.stories))
	copy(out, s.stories)
	return out
}

// Sources returns the recorded membership rows.
func (s *StoryStore) Sources() []supervisor.StorySource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.StorySource, len(s.sources))
	copy(out, s.sources)
	return out
}

// ScheduleStore keeps schedule rows in memory.
type ScheduleStore struct {
	mu      sync.RWMutex
	entries []supervisor.ScheduleEntry
}

// NewScheduleStore creates an empty ScheduleStore.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{}
}

// Add appends a schedule row.
func (s *ScheduleStore) Add(_ context.Context, entry supervisor.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns every schedule row.
func (s *ScheduleStore) List(_ context.Context) ([]supervisor.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// ListByChat returns the rows belonging to one chat.
func (s *ScheduleStore) ListByChat(_ context.Context, chatID int64) ([]supervisor.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []supervisor.ScheduleEntry
	for _, entry := range s.entries {
		if entry.ChatID == chatID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Get returns one schedule row by its identifier.
func (s *ScheduleStore) Get(_ context.Context, scheduleID uuid.UUID) (supervisor.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.ScheduleID == scheduleID {
			return entry, nil
		}
	}
	return supervisor.ScheduleEntry{}, fmt.Errorf("schedule %s not found", scheduleID)
}

// Update writes only the named fields of the entry.
func (s *ScheduleStore) Update(_ context.Context, entry supervisor.ScheduleEntry, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ScheduleID != entry.ScheduleID {
			continue
		}
		for _, field := range fields {
			switch field {
			case "preset_id":
				s.entries[i].PresetID = entry.PresetID
			case "cron":
				s.entries[i].Cron = entry.Cron
			case "last_run":
				s.entries[i].LastRun = entry.LastRun
			case "active":
				s.entries[i].Active = entry.Active
			case "deleted":
				s.entries[i].Deleted = entry.Deleted
			default:
				return fmt.Errorf("unknown schedule field %q", field)
			}
		}
		return nil
	}
	return fmt.Errorf("schedule %s not found", entry.ScheduleID)
}

// RequestStore keeps request rows in memory.
type RequestStore struct {
	mu       sync.RWMutex
	requests []supervisor.Request
}

// NewRequestStore creates an empty RequestStore.
func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

// Add appends a request row.
func (s *RequestStore) Add(_ context.Context, request supervisor.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	return nil
}

// Requests returns the recorded request rows.
func (s *RequestStore) Requests() []supervisor.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// ConfigStore serves a fixed set of fetch configurations.
type ConfigStore struct {
	mu      sync.RWMutex
	configs []supervisor.FetchConfig
}

// NewConfigStore creates a ConfigStore serving the given rows.
func NewConfigStore(configs ...supervisor.FetchConfig) *ConfigStore {
	return &ConfigStore{configs: configs}
}

// List returns the configured rows.
func (s *ConfigStore) List(_ context.Context) ([]supervisor.FetchConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.FetchConfig, len(s.configs))
	copy(out, s.configs)
	return out, nil
}

// SummaryStore keeps summary rows in memory.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries []supervisor.Summary
}

// NewSummaryStore creates an empty SummaryStore.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

// Add appends summary rows.
func (s *SummaryStore) Add(_ context.Context, summaries []supervisor.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summaries...)
	return nil
}

// Summaries returns the recorded summary rows.
func (s *SummaryStore) Summaries() []supervisor.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]supervisor.Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}
