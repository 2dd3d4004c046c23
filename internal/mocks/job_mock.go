package mocks

import (
	"context"

	"adventure-server/internal/api"
	"adventure-server/internal/jobs"
	"adventure-server/internal/messaging"
	"adventure-server/internal/models"
	"adventure-server/internal/repository"
	"adventure-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockJobRepository is a mock type for the JobRepository type
type MockJobRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, job
func (_m *MockJobRepository) Create(ctx context.Context, job *models.JobRecord) error {
	ret := _m.Called(ctx, job)
	return ret.Error(0)
}

// GetByJobID provides a mock function with given fields: ctx, jobID
func (_m *MockJobRepository) GetByJobID(ctx context.Context, jobID string) (*models.JobRecord, error) {
	ret := _m.Called(ctx, jobID)

	var r0 *models.JobRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.JobRecord)
	}

	return r0, ret.Error(1)
}

// MarkProcessing provides a mock function with given fields: ctx, jobID
func (_m *MockJobRepository) MarkProcessing(ctx context.Context, jobID string) error {
	ret := _m.Called(ctx, jobID)
	return ret.Error(0)
}

// MarkCompleted provides a mock function with given fields: ctx, jobID, storyID
func (_m *MockJobRepository) MarkCompleted(ctx context.Context, jobID string, storyID int64) error {
	ret := _m.Called(ctx, jobID, storyID)
	return ret.Error(0)
}

// MarkFailed provides a mock function with given fields: ctx, jobID, errMsg
func (_m *MockJobRepository) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	ret := _m.Called(ctx, jobID, errMsg)
	return ret.Error(0)
}

// NewMockJobRepository creates a new instance of MockJobRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockJobRepository(t interface {
	mock.TestingT
	Helper()
}) *MockJobRepository {
	m := &MockJobRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, payload
func (_m *MockNotifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockTaskPublisher is a mock type for the TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

// PublishTask provides a mock function with given fields: ctx, task
func (_m *MockTaskPublisher) PublishTask(ctx context.Context, task messaging.GenerationTaskPayload) error {
	ret := _m.Called(ctx, task)
	return ret.Error(0)
}

// NewMockTaskPublisher creates a new instance of MockTaskPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTaskPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockTaskPublisher {
	m := &MockTaskPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockJobSubmitter is a mock type for the JobSubmitter type
type MockJobSubmitter struct {
	mock.Mock
}

// Submit provides a mock function with given fields: ctx, theme, sessionID
func (_m *MockJobSubmitter) Submit(ctx context.Context, theme, sessionID string) (*models.JobRecord, error) {
	ret := _m.Called(ctx, theme, sessionID)

	var r0 *models.JobRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.JobRecord)
	}

	return r0, ret.Error(1)
}

// NewMockJobSubmitter creates a new instance of MockJobSubmitter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockJobSubmitter(t interface {
	mock.TestingT
	Helper()
}) *MockJobSubmitter {
	m := &MockJobSubmitter{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockStoryReader is a mock type for the StoryReader type
type MockStoryReader struct {
	mock.Mock
}

// GetStory provides a mock function with given fields: ctx, id
func (_m *MockStoryReader) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}

	return r0, ret.Error(1)
}

// NewMockStoryReader creates a new instance of MockStoryReader. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryReader(t interface {
	mock.TestingT
	Helper()
}) *MockStoryReader {
	m := &MockStoryReader{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var (
	_ repository.JobRepository = (*MockJobRepository)(nil)
	_ service.Notifier         = (*MockNotifier)(nil)
	_ jobs.TaskPublisher       = (*MockTaskPublisher)(nil)
	_ api.JobSubmitter         = (*MockJobSubmitter)(nil)
	_ api.StoryReader          = (*MockStoryReader)(nil)
)
