package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

func TestAddStoriesInsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoryStore(mock)
	require.NoError(t, err)

	stories := []supervisor.Story{
		{StoryID: uuid.New(), RequestID: uuid.New(), CategoryID: uuid.New()},
		{StoryID: uuid.New(), RequestID: uuid.New(), CategoryID: uuid.New()},
	}
	for _, story := range stories {
		mock.ExpectExec("INSERT INTO stories").
			WithArgs(story.StoryID, story.RequestID, story.CategoryID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.AddStories(context.Background(), stories))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStorySourcesInsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoryStore(mock)
	require.NoError(t, err)

	source := supervisor.StorySource{StoryID: uuid.New(), SourceID: 11, ChannelID: 3}
	mock.ExpectExec("INSERT INTO story_sources").
		WithArgs(source.StoryID, source.SourceID, source.ChannelID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.AddStorySources(context.Background(), []supervisor.StorySource{source}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStoriesPropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoryStore(mock)
	require.NoError(t, err)

	boom := errors.New("connection lost")
	mock.ExpectExec("INSERT INTO stories").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err = store.AddStories(context.Background(), []supervisor.Story{{StoryID: uuid.New()}})
	require.ErrorIs(t, err, boom)
}

func TestGetStorySourcesJoinsSourceTexts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoryStore(mock)
	require.NoError(t, err)

	storyID := uuid.New()
	mock.ExpectQuery("SELECT ss.story_id, src.text, src.reference").
		WithArgs(storyID).
		WillReturnRows(pgxmock.NewRows([]string{"story_id", "text", "reference"}).
			AddRow(storyID, "breaking news", "https://t.me/a/1").
			AddRow(storyID, "more details", "https://t.me/b/2"))

	sources, err := store.GetStorySources(context.Background(), storyID)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, "breaking news", sources[0].Text)
	require.Equal(t, "https://t.me/b/2", sources[1].Reference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoryStoreRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewStoryStore(nil)
	require.Error(t, err)
}
