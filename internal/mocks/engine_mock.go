package mocks

import (
	"context"
	"time"

	"adventure-server/internal/api"
	"adventure-server/internal/jobs"
	"adventure-server/internal/models"
	"adventure-server/internal/prompt"
	"adventure-server/internal/storygen"

	"github.com/stretchr/testify/mock"
)

// MockHealthChecker is a mock type for the HealthChecker type
type MockHealthChecker struct {
	mock.Mock
}

// IsHealthy provides a mock function with given fields: ctx
func (_m *MockHealthChecker) IsHealthy(ctx context.Context) bool {
	ret := _m.Called(ctx)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context) bool); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Bool(0)
	}

	return r0
}

// NewMockHealthChecker creates a new instance of MockHealthChecker. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockHealthChecker(t interface {
	mock.TestingT
	Helper()
}) *MockHealthChecker {
	m := &MockHealthChecker{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockInvoker is a mock type for the Invoker type
type MockInvoker struct {
	mock.Mock
}

// Invoke provides a mock function with given fields: ctx, payload, timeout
func (_m *MockInvoker) Invoke(ctx context.Context, payload prompt.Payload, timeout time.Duration) (string, error) {
	ret := _m.Called(ctx, payload, timeout)

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, prompt.Payload, time.Duration) (string, error)); ok {
		return rf(ctx, payload, timeout)
	}
	r0 = ret.String(0)
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockInvoker creates a new instance of MockInvoker. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockInvoker(t interface {
	mock.TestingT
	Helper()
}) *MockInvoker {
	m := &MockInvoker{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockGenerator is a mock type for the Generator type
type MockGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, theme, sessionID
func (_m *MockGenerator) Generate(ctx context.Context, theme, sessionID string) (*models.Story, error) {
	ret := _m.Called(ctx, theme, sessionID)

	var r0 *models.Story
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *models.Story); ok {
		r0 = rf(ctx, theme, sessionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}

	return r0, ret.Error(1)
}

// NewMockGenerator creates a new instance of MockGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var (
	_ storygen.HealthChecker = (*MockHealthChecker)(nil)
	_ api.HealthChecker      = (*MockHealthChecker)(nil)
	_ storygen.Invoker       = (*MockInvoker)(nil)
	_ jobs.Generator         = (*MockGenerator)(nil)
)
