package metrics

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const jobName = "story_generator"

// Metrics - коллекторы генератора историй в отдельном реестре.
type Metrics struct {
	registry *prometheus.Registry

	HealthChecks     *prometheus.CounterVec
	AIRequests       *prometheus.CounterVec
	AIRequestLatency *prometheus.HistogramVec
	AIPromptTokens   *prometheus.HistogramVec
	Generations      *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	NodesPersisted   prometheus.Histogram
	TasksReceived    prometheus.Counter
	TasksFailed      *prometheus.CounterVec
	TasksSucceeded   prometheus.Counter
}

// New регистрирует все коллекторы в новом реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HealthChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generator_health_checks_total",
			Help: "Backend health probes partitioned by result.",
		}, []string{"result"}),
		AIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generator_ai_requests_total",
			Help: "Total number of requests to the generation backend.",
		}, []string{"backend", "status"}),
		AIRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_generator_ai_request_duration_seconds",
			Help:    "Histogram of generation backend request durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"backend"}),
		AIPromptTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "story_generator_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 10),
		}, []string{"backend"}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generator_generations_total",
			Help: "Story generations partitioned by outcome (generated, fallback, failed).",
		}, []string{"outcome"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generator_fallbacks_total",
			Help: "Fallback stories partitioned by the reason the main path failed.",
		}, []string{"reason"}),
		NodesPersisted: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "story_generator_nodes_persisted",
			Help:    "Number of nodes persisted per generated story.",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}),
		TasksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "story_generator_tasks_received_total",
			Help: "Total number of tasks received by the worker.",
		}),
		TasksFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "story_generator_tasks_failed_total",
			Help: "Total number of tasks failed, partitioned by failure reason.",
		}, []string{"reason"}),
		TasksSucceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "story_generator_tasks_succeeded_total",
			Help: "Total number of tasks successfully processed.",
		}),
	}
}

// Registry возвращает реестр (для тестов и Pushgateway).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Pusher отправляет метрики разового запуска (CLI) в Pushgateway.
type Pusher struct {
	pusher *push.Pusher
	logger *zap.Logger
}

// NewPusher возвращает nil, если url пуст.
func (m *Metrics) NewPusher(url string, logger *zap.Logger) *Pusher {
	if url == "" {
		return nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	return &Pusher{
		pusher: push.New(url, jobName).Gatherer(m.registry).Grouping("instance", instanceID),
		logger: logger.Named("MetricsPusher"),
	}
}

// Push отправляет текущие значения. Ошибка только логируется.
func (p *Pusher) Push() {
	if p == nil {
		return
	}
	if err := p.pusher.Push(); err != nil {
		p.logger.Warn("Failed to push metrics to Pushgateway", zap.Error(err))
		return
	}
	p.logger.Debug("Metrics pushed to Pushgateway")
}
