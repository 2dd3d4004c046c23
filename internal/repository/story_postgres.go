package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

var _ StoryStore = (*pgStoryStore)(nil)

type pgStoryStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryStore создает хранилище историй поверх пула pgx.
func NewPgStoryStore(pool *pgxpool.Pool, logger *zap.Logger) StoryStore {
	return &pgStoryStore{pool: pool, logger: logger.Named("PgStoryStore")}
}

const (
	createStoryQuery = `
INSERT INTO stories (title, session_id)
VALUES ($1, $2)
RETURNING id, created_at`

	createNodeQuery = `
INSERT INTO story_nodes (story_id, content, is_ending, is_winning_ending, is_root, options)
VALUES ($1, $2, $3, $4, $5, '[]'::jsonb)
RETURNING id`

	setOptionsQuery = `UPDATE story_nodes SET options = $1 WHERE id = $2`

	getStoryQuery = `
SELECT id, title, session_id, created_at
FROM stories
WHERE id = $1`

	getStoryNodesQuery = `
SELECT id, story_id, content, is_ending, is_winning_ending, is_root, options
FROM story_nodes
WHERE story_id = $1
ORDER BY id`
)

func (s *pgStoryStore) Begin(ctx context.Context) (StoryTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgStoryTx{tx: tx, logger: s.logger}, nil
}

func (s *pgStoryStore) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	return getStory(ctx, s.pool, id)
}

func getStory(ctx context.Context, db DBTX, id int64) (*models.Story, error) {
	var story models.Story
	if err := pgxscan.Get(ctx, db, &story, getStoryQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get story %d: %w", id, err)
	}
	if err := pgxscan.Select(ctx, db, &story.Nodes, getStoryNodesQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get nodes of story %d: %w", id, err)
	}
	return &story, nil
}

// pgStoryTx реализует StoryTx поверх pgx.Tx.
type pgStoryTx struct {
	tx     pgx.Tx
	logger *zap.Logger
	done   bool
}

func (t *pgStoryTx) CreateStory(ctx context.Context, title, sessionID string) (*models.Story, error) {
	story := &models.Story{Title: title, SessionID: sessionID}
	if err := t.tx.QueryRow(ctx, createStoryQuery, title, sessionID).Scan(&story.ID, &story.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	t.logger.Debug("Story row created", zap.Int64("story_id", story.ID))
	return story, nil
}

func (t *pgStoryTx) CreateNode(ctx context.Context, storyID int64, content string, isEnding, isWinningEnding, isRoot bool) (*models.StoryNode, error) {
	node := &models.StoryNode{
		StoryID:         storyID,
		Content:         content,
		IsEnding:        isEnding,
		IsWinningEnding: isWinningEnding,
		IsRoot:          isRoot,
		Options:         []models.Option{},
	}
	err := t.tx.QueryRow(ctx, createNodeQuery, storyID, content, isEnding, isWinningEnding, isRoot).Scan(&node.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create node for story %d: %w", storyID, err)
	}
	return node, nil
}

func (t *pgStoryTx) SetOptions(ctx context.Context, node *models.StoryNode, options []models.Option) error {
	if options == nil {
		options = []models.Option{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to marshal options of node %d: %w", node.ID, err)
	}
	tag, err := t.tx.Exec(ctx, setOptionsQuery, raw, node.ID)
	if err != nil {
		return fmt.Errorf("failed to set options of node %d: %w", node.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set options of node %d: %w", node.ID, ErrNotFound)
	}
	node.Options = options
	return nil
}

// Flush: ID уже выданы через RETURNING.
func (t *pgStoryTx) Flush(context.Context) error { return nil }

func (t *pgStoryTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.done = true
	return nil
}

func (t *pgStoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
