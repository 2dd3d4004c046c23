package storygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"adventure-server/internal/logger"
	"adventure-server/internal/metrics"
	"adventure-server/internal/models"
	"adventure-server/internal/prompt"
	"adventure-server/internal/repository"
	"adventure-server/internal/schemas"
	"adventure-server/internal/service"
)

// State - шаг генерации, пишется в лог полем "state".
type State string

const (
	StateCheckingHealth State = "checking_health"
	StateInvoking       State = "invoking"
	StateParsing        State = "parsing"
	StateBuilding       State = "building"
	StateCommitted      State = "committed"
	StateFallback       State = "fallback"
)

// Причины перехода в Fallback (label "reason").
const (
	reasonUnhealthy   = "unhealthy"
	reasonTimeout     = "timeout"
	reasonInvocation  = "invocation"
	reasonParse       = "parse"
	reasonPersistence = "persistence"
)

const rawLogLimit = 2000

// HealthChecker проверяет доступность бэкенда. Никогда не паникует.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Invoker вызывает бэкенд с ограничением по времени.
type Invoker interface {
	Invoke(ctx context.Context, payload prompt.Payload, timeout time.Duration) (string, error)
}

// PromptBuilder строит запрос по теме.
type PromptBuilder interface {
	Build(theme string) prompt.Payload
}

// Engine - конечный автомат генерации одной истории.
type Engine struct {
	health   HealthChecker
	invoker  Invoker
	prompts  PromptBuilder
	store    repository.StoryStore
	builder  *TreeBuilder
	fallback *FallbackGenerator
	limits   Limits
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// EngineDeps собирает зависимости Engine.
type EngineDeps struct {
	Health  HealthChecker
	Invoker Invoker
	Prompts PromptBuilder
	Store   repository.StoryStore
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewEngine. Нулевой timeout означает таймаут Invoker по умолчанию.
func NewEngine(deps EngineDeps, limits Limits, timeout time.Duration) *Engine {
	l := deps.Logger.Named("StoryEngine")
	return &Engine{
		health:   deps.Health,
		invoker:  deps.Invoker,
		prompts:  deps.Prompts,
		store:    deps.Store,
		builder:  NewTreeBuilder(limits, deps.Logger),
		fallback: NewFallbackGenerator(deps.Store, deps.Logger),
		limits:   limits,
		timeout:  timeout,
		metrics:  deps.Metrics,
		logger:   l,
	}
}

// Generate возвращает сохраненную историю. Ошибка бэкенда, парсинга или
// сохранения приводит к резервной истории; ошибка возвращается только
// если не удалось сохранить и ее.
func (e *Engine) Generate(ctx context.Context, theme, sessionID string) (*models.Story, error) {
	theme = prompt.NormalizeTheme(theme)
	log := e.logger.With(zap.String("session_id", sessionID), zap.String("theme", theme))

	log.Info("Generation started", zap.String("state", string(StateCheckingHealth)))
	if !e.health.IsHealthy(ctx) {
		return e.runFallback(ctx, log, theme, sessionID, reasonUnhealthy, service.ErrHealthCheckFailed)
	}

	story, reason, err := e.generate(ctx, log, theme, sessionID)
	if err != nil {
		return e.runFallback(ctx, log, theme, sessionID, reason, err)
	}

	e.metrics.Generations.WithLabelValues("generated").Inc()
	e.metrics.NodesPersisted.Observe(float64(len(story.Nodes)))
	log.Info("Story generated",
		zap.String("state", string(StateCommitted)),
		zap.Int64("story_id", story.ID),
		zap.Int("nodes", len(story.Nodes)))
	return story, nil
}

func (e *Engine) generate(ctx context.Context, log *zap.Logger, theme, sessionID string) (*models.Story, string, error) {
	log.Debug("Invoking backend", zap.String("state", string(StateInvoking)))
	raw, err := e.invoker.Invoke(ctx, e.prompts.Build(theme), e.timeout)
	if err != nil {
		if errors.Is(err, service.ErrInvocationTimeout) {
			return nil, reasonTimeout, err
		}
		return nil, reasonInvocation, err
	}
	log.Debug("Backend response received",
		zap.String("state", string(StateParsing)),
		zap.Int("length", len(raw)),
		zap.String("raw", logger.Truncate(raw, rawLogLimit)))

	parsed, err := schemas.ParseStoryResponse(raw)
	if err != nil {
		log.Warn("Failed to parse backend response", zap.Error(err))
		return nil, reasonParse, err
	}

	log.Debug("Persisting story tree",
		zap.String("state", string(StateBuilding)),
		zap.Int("schema_nodes", parsed.Root.CountNodes()))
	story, err := e.persist(ctx, log, theme, sessionID, parsed)
	if err != nil {
		return nil, reasonPersistence, err
	}
	return story, "", nil
}

// persist сохраняет дерево в одной транзакции. Любая ошибка откатывает все.
func (e *Engine) persist(ctx context.Context, log *zap.Logger, theme, sessionID string, parsed *schemas.StorySchema) (story *models.Story, err error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				log.Error("Failed to rollback story transaction", zap.Error(rbErr))
			}
		}
	}()

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = FallbackTitle(theme)
	}
	story, err = tx.CreateStory(ctx, title, sessionID)
	if err != nil {
		return nil, persistErr("create story", err)
	}

	rec := &recordingTx{StoryTx: tx}
	if _, err = e.builder.Build(ctx, rec, story.ID, parsed.Root, true, 0); err != nil {
		return nil, err
	}
	if err = models.ValidateTree(rec.nodes, e.limits.MaxDepth, e.limits.MaxOptions); err != nil {
		return nil, persistErr("validate tree", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, persistErr("commit", err)
	}

	story.Nodes = rec.nodes
	return story, nil
}

func (e *Engine) runFallback(ctx context.Context, log *zap.Logger, theme, sessionID, reason string, cause error) (*models.Story, error) {
	e.metrics.Fallbacks.WithLabelValues(reason).Inc()
	log.Warn("Falling back to default story",
		zap.String("state", string(StateFallback)),
		zap.String("reason", reason),
		zap.Error(cause))

	story, err := e.fallback.Create(ctx, theme, sessionID)
	if err != nil {
		e.metrics.Generations.WithLabelValues("failed").Inc()
		log.Error("Fallback story failed", zap.Error(err))
		return nil, fmt.Errorf("%w (after %s: %v)", err, reason, cause)
	}
	e.metrics.Generations.WithLabelValues("fallback").Inc()
	e.metrics.NodesPersisted.Observe(float64(len(story.Nodes)))
	return story, nil
}

// recordingTx запоминает узлы, созданные в транзакции, для проверки дерева.
type recordingTx struct {
	repository.StoryTx
	nodes []*models.StoryNode
}

func (r *recordingTx) CreateNode(ctx context.Context, storyID int64, content string, isEnding, isWinningEnding, isRoot bool) (*models.StoryNode, error) {
	node, err := r.StoryTx.CreateNode(ctx, storyID, content, isEnding, isWinningEnding, isRoot)
	if err == nil {
		r.nodes = append(r.nodes, node)
	}
	return node, err
}
