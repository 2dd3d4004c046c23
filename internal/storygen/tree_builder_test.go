package storygen_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/schemas"
	"adventure-server/internal/storygen"
)

func TestTreeBuilder_CustomLimits(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	story, err := tx.CreateStory(ctx, "Wide", "s")
	require.NoError(t, err)

	leaf := func(c string) *schemas.NodeSchema { return &schemas.NodeSchema{Content: c, IsEnding: true} }
	root := &schemas.NodeSchema{Content: "root", Options: []schemas.OptionSchema{
		{Text: "a", Next: &schemas.NodeSchema{Content: "mid", Options: []schemas.OptionSchema{{Text: "deep", Next: leaf("deep")}}}},
		{Text: "b", Next: leaf("b")},
		{Text: "c", Next: leaf("c")},
		{Text: "nil child"},
	}}

	builder := storygen.NewTreeBuilder(storygen.Limits{MaxDepth: 1, MaxOptions: 4}, zap.NewNop())
	rootID, err := builder.Build(ctx, tx, story.ID, root, true, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	got, err := store.GetStory(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 4)
	assert.Equal(t, rootID, got.Root().ID)
	assert.Equal(t, []string{"a", "b", "c"}, optionTexts(got.Root()))

	mid := got.Node(got.Root().Options[0].NodeID)
	require.NotNil(t, mid)
	assert.Equal(t, "mid", mid.Content)
	assert.Empty(t, mid.Options)
}

func TestTreeBuilder_NilNode(t *testing.T) {
	ctx := context.Background()
	tx, err := newSQLiteStore(t).Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = storygen.NewTreeBuilder(storygen.DefaultLimits, zap.NewNop()).Build(ctx, tx, 1, nil, true, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storygen.ErrPersistence))
}

func TestFallbackTitle(t *testing.T) {
	tests := map[string]string{
		"fantasy":       "Fantasy Adventure",
		"space pirates": "Space Pirates Adventure",
		"SPACE pirates": "Space Pirates Adventure",
	}
	for theme, want := range tests {
		assert.Equal(t, want, storygen.FallbackTitle(theme), theme)
	}
}

func TestFallbackGenerator_Create(t *testing.T) {
	store := newSQLiteStore(t)
	story, err := storygen.NewFallbackGenerator(store, zap.NewNop()).Create(context.Background(), "desert", "session-9")
	require.NoError(t, err)
	require.Len(t, story.Nodes, 2)
	assert.Equal(t, "session-9", story.SessionID)
	assert.True(t, story.Nodes[0].IsRoot)
	assert.Equal(t, story.Nodes[1].ID, story.Nodes[0].Options[0].NodeID)
}
