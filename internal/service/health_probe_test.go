package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/metrics"
)

func ollamaTagsServer(t *testing.T, status int, body string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newOllamaProbe(t *testing.T, baseURL string, timeout time.Duration, requireModel bool) (*HealthProbe, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	cfg := &config.Config{AIClientType: config.AIClientOllama, AIBaseURL: baseURL, AIModel: "llama3.2", AITimeout: 10 * time.Second}
	backend, err := NewBackend(cfg, m, zap.NewNop())
	require.NoError(t, err)
	return NewHealthProbe(backend, cfg.AIModel, timeout, requireModel, m, zap.NewNop()), m
}

const tagsWithLlama = `{"models":[{"name":"mistral:7b","model":"mistral:7b"},{"name":"llama3.2:latest","model":"llama3.2:latest"}]}`

func TestHealthProbe_Ollama(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		delay        time.Duration
		requireModel bool
		want         bool
	}{
		{name: "model present", status: http.StatusOK, body: tagsWithLlama, want: true},
		{name: "model missing is tolerated", status: http.StatusOK, body: `{"models":[{"name":"mistral:7b"}]}`, want: true},
		{name: "model missing and required", status: http.StatusOK, body: `{"models":[]}`, requireModel: true, want: false},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, want: false},
		{name: "undecodable list", status: http.StatusOK, body: `not json`, want: false},
		{name: "slower than timeout", status: http.StatusOK, body: tagsWithLlama, delay: 2 * time.Second, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ollamaTagsServer(t, tt.status, tt.body, tt.delay)
			probe, m := newOllamaProbe(t, srv.URL, 200*time.Millisecond, tt.requireModel)

			assert.Equal(t, tt.want, probe.IsHealthy(context.Background()))

			label := "unhealthy"
			if tt.want {
				label = "healthy"
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthChecks.WithLabelValues(label)))
		})
	}
}

func TestHealthProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	probe, _ := newOllamaProbe(t, url, time.Second, false)
	assert.False(t, probe.IsHealthy(context.Background()))
}

func TestHealthProbe_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"deepseek/deepseek-chat","object":"model"}]}`))
	}))
	defer srv.Close()

	m := metrics.New()
	cfg := &config.Config{AIClientType: config.AIClientOpenAI, AIBaseURL: srv.URL + "/v1", AIAPIKey: "test-key", AIModel: "deepseek-chat", AITimeout: 5 * time.Second}
	backend, err := NewBackend(cfg, m, zap.NewNop())
	require.NoError(t, err)

	probe := NewHealthProbe(backend, cfg.AIModel, time.Second, true, m, zap.NewNop())
	assert.True(t, probe.IsHealthy(context.Background()))
}

func TestHealthProbe_NeverPanics(t *testing.T) {
	backend := &panickingBackend{}
	probe := NewHealthProbe(backend, "llama3.2", time.Second, false, metrics.New(), zap.NewNop())
	assert.False(t, probe.IsHealthy(context.Background()))
}

func TestHealthProbe_ListError(t *testing.T) {
	probe := NewHealthProbe(&stubBackend{err: errors.New("dial tcp: refused")}, "llama3.2", time.Second, false, metrics.New(), zap.NewNop())
	assert.False(t, probe.IsHealthy(context.Background()))
}

type panickingBackend struct{ stubBackend }

func (p *panickingBackend) ListModels(context.Context) ([]string, error) { panic("nil client") }
