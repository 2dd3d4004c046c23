package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.Generations.WithLabelValues("fallback").Inc()
	m.HealthChecks.WithLabelValues("healthy").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `story_generator_generations_total{outcome="fallback"} 1`)
	assert.Contains(t, string(body), `story_generator_health_checks_total{result="healthy"} 1`)
}

func TestNewInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.TasksReceived.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.TasksReceived))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TasksReceived))
}

func TestPusher(t *testing.T) {
	m := New()
	assert.Nil(t, m.NewPusher("", zap.NewNop()))

	var pushed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = r.Method == http.MethodPut
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := m.NewPusher(srv.URL, zap.NewNop())
	require.NotNil(t, p)
	p.Push()
	assert.True(t, pushed)

	var nilPusher *Pusher
	nilPusher.Push()
}
