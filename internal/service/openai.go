package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/metrics"
	"adventure-server/internal/prompt"
)

const backendOpenAI = "openai"

// openAIBackend реализует Backend для OpenAI-совместимых API (OpenRouter и т.п.).
type openAIBackend struct {
	client      *openaigo.Client
	model       string
	temperature float32
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func newOpenAIBackend(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) Backend {
	openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
	openaiConfig.BaseURL = cfg.AIBaseURL
	openaiConfig.HTTPClient = newHTTPClient()

	log := logger.Named("OpenAIBackend")
	log.Info("OpenAI client created",
		zap.String("base_url", cfg.AIBaseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("default_timeout", cfg.AITimeout))

	return &openAIBackend{
		client:      openaigo.NewClientWithConfig(openaiConfig),
		model:       cfg.AIModel,
		temperature: float32(cfg.AITemperature),
		metrics:     m,
		logger:      log,
	}
}

func (b *openAIBackend) Name() string { return backendOpenAI }

// ListModels запрашивает GET /models.
func (b *openAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (b *openAIBackend) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	if strings.TrimSpace(payload.System) == "" {
		return "", errors.New("system prompt is empty")
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: b.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: payload.System},
			{Role: openaigo.ChatMessageRoleUser, Content: payload.User},
		},
		Temperature: b.temperature,
	})
	duration := time.Since(start)
	b.metrics.AIRequestLatency.WithLabelValues(backendOpenAI).Observe(duration.Seconds())

	if err != nil {
		b.metrics.AIRequests.WithLabelValues(backendOpenAI, "error").Inc()
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		b.metrics.AIRequests.WithLabelValues(backendOpenAI, "error_empty_response").Inc()
		return "", errors.New("empty response")
	}

	b.metrics.AIRequests.WithLabelValues(backendOpenAI, "success").Inc()
	promptTokens := resp.Usage.PromptTokens
	if promptTokens == 0 {
		// Некоторые провайдеры не возвращают usage
		promptTokens = b.estimateTokens(payload.System, payload.User)
	}
	if promptTokens > 0 {
		b.metrics.AIPromptTokens.WithLabelValues(backendOpenAI).Observe(float64(promptTokens))
	}

	text := resp.Choices[0].Message.Content
	b.logger.Info("OpenAI response received",
		zap.Duration("duration", duration),
		zap.Int("response_length", len(text)),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return text, nil
}

// estimateTokens - примерный подсчет токенов через tiktoken. 0, если кодировка недоступна.
func (b *openAIBackend) estimateTokens(texts ...string) int {
	tke, err := tiktoken.EncodingForModel(b.model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			b.logger.Debug("Tokenizer unavailable, skipping token estimate", zap.Error(err))
			return 0
		}
	}
	total := 0
	for _, t := range texts {
		total += len(tke.Encode(t, nil, nil))
	}
	return total
}
