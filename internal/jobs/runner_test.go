package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/jobs"
	"adventure-server/internal/messaging"
	"adventure-server/internal/metrics"
	"adventure-server/internal/mocks"
	"adventure-server/internal/models"
	"adventure-server/internal/repository"
)

const testJobID = "4f1c2a52-95a6-4c39-9d0c-3f2b5e8e7a10"

type runnerFixture struct {
	runner    *jobs.Runner
	repo      *mocks.MockJobRepository
	generator *mocks.MockGenerator
	publisher *mocks.MockTaskPublisher
	notifier  *mocks.MockNotifier
	metrics   *metrics.Metrics
}

func newRunner(t *testing.T) *runnerFixture {
	f := &runnerFixture{
		repo:      mocks.NewMockJobRepository(t),
		generator: mocks.NewMockGenerator(t),
		publisher: mocks.NewMockTaskPublisher(t),
		notifier:  mocks.NewMockNotifier(t),
		metrics:   metrics.New(),
	}
	f.runner = jobs.NewRunner(f.repo, f.generator, f.publisher, f.notifier, f.metrics, nil, zap.NewNop())
	return f
}

func pendingJob() *models.JobRecord {
	return &models.JobRecord{JobID: testJobID, Status: models.JobStatusPending, Theme: "pirates", SessionID: "session-1"}
}

func TestRunner_Submit(t *testing.T) {
	f := newRunner(t)

	var created *models.JobRecord
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.JobRecord")).Return(nil).Once().
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.JobRecord) })
	f.publisher.On("PublishTask", mock.Anything, mock.AnythingOfType("messaging.GenerationTaskPayload")).Return(nil).Once().
		Run(func(args mock.Arguments) {
			task := args.Get(1).(messaging.GenerationTaskPayload)
			assert.Equal(t, created.JobID, task.JobID)
			assert.Equal(t, "pirates", task.Theme)
			assert.Equal(t, "session-1", task.SessionID)
		})

	job, err := f.runner.Submit(context.Background(), "  pirates ", "session-1")
	require.NoError(t, err)

	_, parseErr := uuid.Parse(job.JobID)
	assert.NoError(t, parseErr)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "pirates", job.Theme)
	assert.False(t, job.CreatedAt.IsZero())
	f.repo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestRunner_SubmitPublishFailureMarksFailed(t *testing.T) {
	f := newRunner(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.publisher.On("PublishTask", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
	f.repo.On("MarkFailed", mock.Anything, mock.AnythingOfType("string"), "channel closed").Return(nil).Once()

	job, err := f.runner.Submit(context.Background(), "", "s")
	require.Error(t, err)
	assert.Nil(t, job)
	f.repo.AssertExpectations(t)
}

func TestRunner_HandleTaskSuccess(t *testing.T) {
	f := newRunner(t)
	story := &models.Story{ID: 42, Title: "Pirate Gold", SessionID: "session-1"}

	f.repo.On("GetByJobID", mock.Anything, testJobID).Return(pendingJob(), nil).Once()
	f.repo.On("MarkProcessing", mock.Anything, testJobID).Return(nil).Once()
	f.generator.On("Generate", mock.Anything, "pirates", "session-1").Return(story, nil).Once()
	f.repo.On("MarkCompleted", mock.Anything, testJobID, int64(42)).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, messaging.NotificationPayload{
		JobID:     testJobID,
		SessionID: "session-1",
		Status:    messaging.NotificationStatusSuccess,
		StoryID:   42,
		Title:     "Pirate Gold",
	}).Return(nil).Once()

	err := f.runner.HandleTask(context.Background(), messaging.GenerationTaskPayload{JobID: testJobID})
	require.NoError(t, err)

	f.repo.AssertExpectations(t)
	f.generator.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TasksReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TasksSucceeded))
}

func TestRunner_HandleTaskGenerationFailure(t *testing.T) {
	f := newRunner(t)
	genErr := errors.New("fallback story generation failed: disk full")

	f.repo.On("GetByJobID", mock.Anything, testJobID).Return(pendingJob(), nil).Once()
	f.repo.On("MarkProcessing", mock.Anything, testJobID).Return(nil).Once()
	f.generator.On("Generate", mock.Anything, "pirates", "session-1").Return(nil, genErr).Once()
	f.repo.On("MarkFailed", mock.Anything, testJobID, genErr.Error()).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.AnythingOfType("messaging.NotificationPayload")).Return(errors.New("broker down")).Once().
		Run(func(args mock.Arguments) {
			n := args.Get(1).(messaging.NotificationPayload)
			assert.Equal(t, messaging.NotificationStatusError, n.Status)
			assert.Equal(t, genErr.Error(), n.ErrorDetails)
		})

	err := f.runner.HandleTask(context.Background(), messaging.GenerationTaskPayload{JobID: testJobID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobs.ErrGenerationFailed))
	assert.True(t, errors.Is(err, genErr))

	f.repo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TasksFailed.WithLabelValues("generation")))
}

func TestRunner_RunSkipsFinishedJob(t *testing.T) {
	f := newRunner(t)
	job := pendingJob()
	job.Status = models.JobStatusCompleted
	f.repo.On("GetByJobID", mock.Anything, testJobID).Return(job, nil).Once()

	require.NoError(t, f.runner.Run(context.Background(), testJobID))
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_HandleTaskUnknownJob(t *testing.T) {
	f := newRunner(t)
	f.repo.On("GetByJobID", mock.Anything, testJobID).Return(nil, repository.ErrNotFound).Once()

	err := f.runner.HandleTask(context.Background(), messaging.GenerationTaskPayload{JobID: testJobID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TasksFailed.WithLabelValues("job_not_found")))
}
