package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStoryStore {
	t.Helper()
	store, err := OpenSQLiteStoryStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	story, err := tx.CreateStory(ctx, "Sky Pirates", "session-1")
	require.NoError(t, err)
	require.NotZero(t, story.ID)

	root, err := tx.CreateNode(ctx, story.ID, "You board the airship.", false, false, true)
	require.NoError(t, err)
	require.NoError(t, tx.Flush(ctx))
	win, err := tx.CreateNode(ctx, story.ID, "You find gold.", true, true, false)
	require.NoError(t, err)
	lose, err := tx.CreateNode(ctx, story.ID, "You fall.", true, false, false)
	require.NoError(t, err)

	opts := []models.Option{{Text: "Search the hold", NodeID: win.ID}, {Text: "Jump", NodeID: lose.ID}}
	require.NoError(t, tx.SetOptions(ctx, root, opts))
	assert.Equal(t, opts, root.Options)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	got, err := store.GetStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sky Pirates", got.Title)
	assert.Equal(t, "session-1", got.SessionID)
	assert.False(t, got.CreatedAt.IsZero())
	require.Len(t, got.Nodes, 3)

	gotRoot := got.Root()
	require.NotNil(t, gotRoot)
	assert.Equal(t, opts, gotRoot.Options)
	assert.True(t, got.Node(win.ID).IsWinningEnding)
	assert.Empty(t, got.Node(lose.ID).Options)
	require.NoError(t, models.ValidateTree(got.Nodes, models.DefaultMaxDepth, models.DefaultMaxOptions))
}

func TestSQLiteStoryStore_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	story, err := tx.CreateStory(ctx, "Gone", "s")
	require.NoError(t, err)
	_, err = tx.CreateNode(ctx, story.ID, "root", false, false, true)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	_, err = store.GetStory(ctx, story.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoryStore_SetOptionsUnknownNode(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = tx.SetOptions(ctx, &models.StoryNode{ID: 404}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoryStore_NodeRequiresStory(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.CreateNode(ctx, 999, "orphan", false, false, true)
	assert.Error(t, err)
}
