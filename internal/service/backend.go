package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/metrics"
	"adventure-server/internal/prompt"
)

// Backend - сервис генерации текста.
type Backend interface {
	// Name - короткое имя реализации для логов и метрик.
	Name() string
	// ListModels возвращает идентификаторы моделей, доступных на backend.
	ListModels(ctx context.Context) ([]string, error)
	// Generate отправляет запрос и возвращает сырой текст ответа.
	Generate(ctx context.Context, payload prompt.Payload) (string, error)
}

// NewBackend создает Backend в зависимости от AI_CLIENT_TYPE.
func NewBackend(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (Backend, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case config.AIClientOpenAI:
		logger.Info("Using AI backend implementation: OpenAI")
		return newOpenAIBackend(cfg, m, logger), nil
	case config.AIClientOllama:
		logger.Info("Using AI backend implementation: Ollama")
		return newOllamaBackend(cfg, m, logger)
	default:
		return nil, fmt.Errorf("unknown AI client type: '%s'", cfg.AIClientType)
	}
}

// newHTTPClient возвращает клиент без общего Timeout: срок запроса задает
// только ctx (Invoker для генерации, HealthProbe для списка моделей).
// AI_TIMEOUT используется Invoker как таймаут по умолчанию.
func newHTTPClient() *http.Client {
	return &http.Client{}
}
