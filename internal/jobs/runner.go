package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/messaging"
	"adventure-server/internal/metrics"
	"adventure-server/internal/models"
	"adventure-server/internal/prompt"
	"adventure-server/internal/repository"
	"adventure-server/internal/service"
)

// ErrGenerationFailed - движок не вернул историю (не удался даже fallback).
var ErrGenerationFailed = errors.New("story generation failed")

// Generator - движок генерации историй.
type Generator interface {
	Generate(ctx context.Context, theme, sessionID string) (*models.Story, error)
}

// TaskPublisher отправляет задачу в очередь генерации.
type TaskPublisher interface {
	PublishTask(ctx context.Context, task messaging.GenerationTaskPayload) error
}

// Runner ведет жизненный цикл JobRecord. Истории он не изменяет.
type Runner struct {
	jobs      repository.JobRepository
	generator Generator
	publisher TaskPublisher
	notifier  service.Notifier
	metrics   *metrics.Metrics
	pusher    *metrics.Pusher
	logger    *zap.Logger
}

// NewRunner. pusher может быть nil.
func NewRunner(
	jobs repository.JobRepository,
	generator Generator,
	publisher TaskPublisher,
	notifier service.Notifier,
	m *metrics.Metrics,
	pusher *metrics.Pusher,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		jobs:      jobs,
		generator: generator,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		pusher:    pusher,
		logger:    logger.Named("JobRunner"),
	}
}

// Submit создает задачу в статусе pending и публикует ее в очередь.
func (r *Runner) Submit(ctx context.Context, theme, sessionID string) (*models.JobRecord, error) {
	job := &models.JobRecord{
		JobID:     uuid.NewString(),
		Status:    models.JobStatusPending,
		Theme:     prompt.NormalizeTheme(theme),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	log := r.logger.With(zap.String("job_id", job.JobID), zap.String("session_id", sessionID))

	if err := r.jobs.Create(ctx, job); err != nil {
		log.Error("Failed to create job", zap.Error(err))
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	task := messaging.GenerationTaskPayload{
		JobID:     job.JobID,
		Theme:     job.Theme,
		SessionID: job.SessionID,
		CreatedAt: job.CreatedAt,
	}
	if err := r.publisher.PublishTask(ctx, task); err != nil {
		log.Error("Failed to publish generation task", zap.Error(err))
		if markErr := r.jobs.MarkFailed(context.WithoutCancel(ctx), job.JobID, err.Error()); markErr != nil {
			log.Error("Failed to mark job as failed", zap.Error(markErr))
		}
		return nil, fmt.Errorf("failed to publish task for job %s: %w", job.JobID, err)
	}

	log.Info("Job submitted", zap.String("theme", job.Theme))
	return job, nil
}

// Run выполняет задачу: processing -> Generate -> completed или failed.
// Повторная доставка уже завершенной задачи ничего не делает.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	log := r.logger.With(zap.String("job_id", jobID))

	job, err := r.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.IsTerminal() {
		log.Warn("Job already finished, skipping", zap.String("status", string(job.Status)))
		return nil
	}
	log = log.With(zap.String("session_id", job.SessionID))

	if err := r.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("failed to mark job %s as processing: %w", jobID, err)
	}

	story, genErr := r.generator.Generate(ctx, job.Theme, job.SessionID)
	// Статус пишется даже при остановке воркера, иначе задача зависнет в processing.
	finalCtx := context.WithoutCancel(ctx)

	if genErr != nil {
		log.Error("Story generation failed", zap.Error(genErr))
		if err := r.jobs.MarkFailed(finalCtx, jobID, genErr.Error()); err != nil {
			log.Error("Failed to mark job as failed", zap.Error(err))
		}
		r.notify(finalCtx, log, messaging.NotificationPayload{
			JobID:        jobID,
			SessionID:    job.SessionID,
			Status:       messaging.NotificationStatusError,
			ErrorDetails: genErr.Error(),
		})
		return fmt.Errorf("%w: %w", ErrGenerationFailed, genErr)
	}

	if err := r.jobs.MarkCompleted(finalCtx, jobID, story.ID); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", jobID, err)
	}
	r.notify(finalCtx, log, messaging.NotificationPayload{
		JobID:     jobID,
		SessionID: job.SessionID,
		Status:    messaging.NotificationStatusSuccess,
		StoryID:   story.ID,
		Title:     story.Title,
	})
	log.Info("Job completed", zap.Int64("story_id", story.ID))
	return nil
}

// HandleTask реализует messaging.TaskHandler.
func (r *Runner) HandleTask(ctx context.Context, task messaging.GenerationTaskPayload) error {
	r.metrics.TasksReceived.Inc()
	defer r.pusher.Push()

	start := time.Now()
	err := r.Run(ctx, task.JobID)
	if err != nil {
		r.metrics.TasksFailed.WithLabelValues(failureReason(err)).Inc()
		return err
	}
	r.metrics.TasksSucceeded.Inc()
	r.logger.Debug("Task processed", zap.String("job_id", task.JobID), zap.Duration("duration", time.Since(start)))
	return nil
}

func (r *Runner) notify(ctx context.Context, log *zap.Logger, payload messaging.NotificationPayload) {
	if err := r.notifier.Notify(ctx, payload); err != nil {
		log.Error("Failed to send notification", zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "job_not_found"
	case errors.Is(err, ErrGenerationFailed):
		return "generation"
	default:
		return "repository"
	}
}

var _ messaging.TaskHandler = (*Runner)(nil)
