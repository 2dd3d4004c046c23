package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/metrics"
	"adventure-server/internal/prompt"
)

const backendOllama = "ollama"

// ollamaBackend реализует Backend через нативный API Ollama.
type ollamaBackend struct {
	client      *api.Client
	model       string
	temperature float64
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func newOllamaBackend(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (Backend, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", baseURL, err)
	}

	log := logger.Named("OllamaBackend")
	log.Info("Ollama client created",
		zap.String("base_url", baseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("default_timeout", cfg.AITimeout))

	return &ollamaBackend{
		client:      api.NewClient(parsedURL, newHTTPClient()),
		model:       cfg.AIModel,
		temperature: cfg.AITemperature,
		metrics:     m,
		logger:      log,
	}, nil
}

func (b *ollamaBackend) Name() string { return backendOllama }

// ListModels запрашивает GET /api/tags.
func (b *ollamaBackend) ListModels(ctx context.Context) ([]string, error) {
	resp, err := b.client.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (b *ollamaBackend) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	if strings.TrimSpace(payload.System) == "" {
		return "", errors.New("system prompt is empty")
	}
	stream := false
	req := &api.ChatRequest{
		Model: b.model,
		Messages: []api.Message{
			{Role: "system", Content: payload.System},
			{Role: "user", Content: payload.User},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]interface{}{
			"temperature": b.temperature,
		},
	}

	start := time.Now()
	b.logger.Debug("Sending request to Ollama",
		zap.String("model", b.model),
		zap.String("theme", payload.Theme),
		zap.Int("system_bytes", len(payload.System)))

	var resp api.ChatResponse
	err := b.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	b.metrics.AIRequestLatency.WithLabelValues(backendOllama).Observe(duration.Seconds())

	if err != nil {
		b.metrics.AIRequests.WithLabelValues(backendOllama, "error").Inc()
		return "", err
	}
	if resp.Message.Content == "" {
		b.metrics.AIRequests.WithLabelValues(backendOllama, "error_empty_response").Inc()
		return "", errors.New("empty response")
	}

	b.metrics.AIRequests.WithLabelValues(backendOllama, "success").Inc()
	if resp.PromptEvalCount > 0 {
		b.metrics.AIPromptTokens.WithLabelValues(backendOllama).Observe(float64(resp.PromptEvalCount))
	}
	b.logger.Info("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("response_length", len(resp.Message.Content)),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
		zap.Int("completion_tokens", resp.EvalCount))
	return resp.Message.Content, nil
}
