package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"adventure-server/internal/metrics"
)

// HealthProbe проверяет доступность backend до того, как тратить
// полный таймаут генерации.
type HealthProbe struct {
	backend      Backend
	model        string
	timeout      time.Duration
	requireModel bool
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewHealthProbe создает HealthProbe. Если requireModel == false, отсутствие
// модели в списке только логируется.
func NewHealthProbe(backend Backend, model string, timeout time.Duration, requireModel bool, m *metrics.Metrics, logger *zap.Logger) *HealthProbe {
	return &HealthProbe{
		backend:      backend,
		model:        model,
		timeout:      timeout,
		requireModel: requireModel,
		metrics:      m,
		logger:       logger.Named("HealthProbe"),
	}
}

// IsHealthy никогда не возвращает ошибку и не паникует.
func (p *HealthProbe) IsHealthy(ctx context.Context) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Health probe panicked", zap.Any("panic", r))
			healthy = false
		}
		result := "unhealthy"
		if healthy {
			result = "healthy"
		}
		p.metrics.HealthChecks.WithLabelValues(result).Inc()
	}()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	models, err := p.backend.ListModels(probeCtx)
	if err != nil {
		p.logger.Warn("Generation backend is not reachable",
			zap.String("backend", p.backend.Name()),
			zap.Duration("timeout", p.timeout),
			zap.Error(err))
		return false
	}

	if !containsModel(models, p.model) {
		p.logger.Warn("Expected model is not available on backend",
			zap.String("backend", p.backend.Name()),
			zap.String("model", p.model),
			zap.Strings("available", models),
			zap.Bool("require_model", p.requireModel))
		return !p.requireModel
	}
	return true
}

// containsModel: "llama3.2" совпадает с "llama3.2:latest".
func containsModel(names []string, model string) bool {
	for _, n := range names {
		if strings.Contains(n, model) {
			return true
		}
	}
	return false
}
