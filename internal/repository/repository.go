package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"adventure-server/internal/models"
)

// ErrNotFound - запись не найдена.
var ErrNotFound = errors.New("resource not found")

// StoryStore - адаптер хранилища историй.
type StoryStore interface {
	// Begin открывает транзакцию на одну генерацию. Транзакция
	// используется одним писателем.
	Begin(ctx context.Context) (StoryTx, error)
	// GetStory возвращает историю вместе с узлами.
	GetStory(ctx context.Context, id int64) (*models.Story, error)
}

// StoryTx - транзакция построения одной истории (все или ничего).
type StoryTx interface {
	CreateStory(ctx context.Context, title, sessionID string) (*models.Story, error)
	CreateNode(ctx context.Context, storyID int64, content string, isEnding, isWinningEnding, isRoot bool) (*models.StoryNode, error)
	// SetOptions сохраняет упорядоченные варианты узла и обновляет node.Options.
	SetOptions(ctx context.Context, node *models.StoryNode, options []models.Option) error
	// Flush выделяет ID без фиксации транзакции. В SQL хранилищах ID
	// выдаются сразу при вставке.
	Flush(ctx context.Context) error
	Commit(ctx context.Context) error
	// Rollback после Commit ничего не делает.
	Rollback(ctx context.Context) error
}

// JobRepository хранит JobRecord.
type JobRepository interface {
	Create(ctx context.Context, job *models.JobRecord) error
	GetByJobID(ctx context.Context, jobID string) (*models.JobRecord, error)
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string, storyID int64) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
}

// DBTX - общий интерфейс для pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
