package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

var _ JobRepository = (*pgJobRepository)(nil)

type pgJobRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgJobRepository принимает пул или транзакцию.
func NewPgJobRepository(db DBTX, logger *zap.Logger) JobRepository {
	return &pgJobRepository{db: db, logger: logger.Named("PgJobRepo")}
}

const (
	createJobQuery = `
INSERT INTO story_jobs (job_id, status, theme, session_id, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	getJobQuery = `
SELECT id, job_id, status, theme, session_id, story_id, error, created_at, completed_at
FROM story_jobs
WHERE job_id = $1`

	markJobProcessingQuery = `UPDATE story_jobs SET status = $2 WHERE job_id = $1`

	markJobCompletedQuery = `
UPDATE story_jobs SET status = $2, story_id = $3, error = NULL, completed_at = $4
WHERE job_id = $1`

	markJobFailedQuery = `
UPDATE story_jobs SET status = $2, error = $3, completed_at = $4
WHERE job_id = $1`
)

func (r *pgJobRepository) Create(ctx context.Context, job *models.JobRecord) error {
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRow(ctx, createJobQuery, job.JobID, job.Status, job.Theme, job.SessionID, job.CreatedAt).Scan(&job.ID)
	if err != nil {
		r.logger.Error("Failed to create job", zap.String("job_id", job.JobID), zap.Error(err))
		return fmt.Errorf("failed to create job %s: %w", job.JobID, err)
	}
	return nil
}

func (r *pgJobRepository) GetByJobID(ctx context.Context, jobID string) (*models.JobRecord, error) {
	var job models.JobRecord
	if err := pgxscan.Get(ctx, r.db, &job, getJobQuery, jobID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &job, nil
}

func (r *pgJobRepository) MarkProcessing(ctx context.Context, jobID string) error {
	return r.exec(ctx, jobID, markJobProcessingQuery, jobID, models.JobStatusProcessing)
}

func (r *pgJobRepository) MarkCompleted(ctx context.Context, jobID string, storyID int64) error {
	return r.exec(ctx, jobID, markJobCompletedQuery, jobID, models.JobStatusCompleted, storyID, time.Now().UTC())
}

func (r *pgJobRepository) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return r.exec(ctx, jobID, markJobFailedQuery, jobID, models.JobStatusFailed, errMsg, time.Now().UTC())
}

func (r *pgJobRepository) exec(ctx context.Context, jobID, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update job", zap.String("job_id", jobID), zap.Error(err))
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
