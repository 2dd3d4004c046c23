package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"adventure-server/internal/models"
)

var _ StoryStore = (*SQLiteStoryStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stories (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT NOT NULL,
    session_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS story_nodes (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    story_id          INTEGER NOT NULL REFERENCES stories (id) ON DELETE CASCADE,
    content           TEXT    NOT NULL,
    is_ending         INTEGER NOT NULL DEFAULT 0,
    is_winning_ending INTEGER NOT NULL DEFAULT 0,
    is_root           INTEGER NOT NULL DEFAULT 0,
    options           TEXT    NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_story_nodes_story_id ON story_nodes (story_id);`

// SQLiteStoryStore - хранилище историй в SQLite (CLI и тесты).
type SQLiteStoryStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLiteStoryStore открывает базу (":memory:" для тестов) и создает схему.
// Одно соединение: SQLite допускает одного писателя.
func OpenSQLiteStoryStore(path string, logger *zap.Logger) (*SQLiteStoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStoryStore{db: db, logger: logger.Named("SQLiteStoryStore")}, nil
}

func (s *SQLiteStoryStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStoryStore) Begin(ctx context.Context) (StoryTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteStoryTx{tx: tx}, nil
}

func (s *SQLiteStoryStore) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	story := &models.Story{}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT id, title, session_id, created_at FROM stories WHERE id = ?`, id).
		Scan(&story.ID, &story.Title, &story.SessionID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get story %d: %w", id, err)
	}
	if story.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at of story %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, story_id, content, is_ending, is_winning_ending, is_root, options
FROM story_nodes WHERE story_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes of story %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		node := &models.StoryNode{}
		var options string
		if err := rows.Scan(&node.ID, &node.StoryID, &node.Content, &node.IsEnding, &node.IsWinningEnding, &node.IsRoot, &options); err != nil {
			return nil, fmt.Errorf("failed to scan node of story %d: %w", id, err)
		}
		if err := json.Unmarshal([]byte(options), &node.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options of node %d: %w", node.ID, err)
		}
		story.Nodes = append(story.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes of story %d: %w", id, err)
	}
	return story, nil
}

type sqliteStoryTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteStoryTx) CreateStory(ctx context.Context, title, sessionID string) (*models.Story, error) {
	story := &models.Story{Title: title, SessionID: sessionID, CreatedAt: time.Now().UTC()}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO stories (title, session_id, created_at) VALUES (?, ?, ?)`,
		title, sessionID, story.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	if story.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read story id: %w", err)
	}
	return story, nil
}

func (t *sqliteStoryTx) CreateNode(ctx context.Context, storyID int64, content string, isEnding, isWinningEnding, isRoot bool) (*models.StoryNode, error) {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO story_nodes (story_id, content, is_ending, is_winning_ending, is_root, options)
VALUES (?, ?, ?, ?, ?, '[]')`, storyID, content, isEnding, isWinningEnding, isRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to create node for story %d: %w", storyID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read node id: %w", err)
	}
	return &models.StoryNode{
		ID:              id,
		StoryID:         storyID,
		Content:         content,
		IsEnding:        isEnding,
		IsWinningEnding: isWinningEnding,
		IsRoot:          isRoot,
		Options:         []models.Option{},
	}, nil
}

func (t *sqliteStoryTx) SetOptions(ctx context.Context, node *models.StoryNode, options []models.Option) error {
	if options == nil {
		options = []models.Option{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to marshal options of node %d: %w", node.ID, err)
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE story_nodes SET options = ? WHERE id = ?`, string(raw), node.ID)
	if err != nil {
		return fmt.Errorf("failed to set options of node %d: %w", node.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to set options of node %d: %w", node.ID, ErrNotFound)
	}
	node.Options = options
	return nil
}

func (t *sqliteStoryTx) Flush(context.Context) error { return nil }

func (t *sqliteStoryTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.done = true
	return nil
}

func (t *sqliteStoryTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
