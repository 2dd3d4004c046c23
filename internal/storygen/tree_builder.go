package storygen

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"
	"adventure-server/internal/schemas"
)

// Limits - ограничения дерева. Глубина считается в ребрах от корня (корень = 0).
type Limits struct {
	MaxDepth   int
	MaxOptions int
}

// DefaultLimits - MAX_DEPTH = 3, MAX_OPTIONS = 2.
var DefaultLimits = Limits{MaxDepth: models.DefaultMaxDepth, MaxOptions: models.DefaultMaxOptions}

// TreeBuilder рекурсивно сохраняет NodeSchema в хранилище.
// Состояния нет: глубина передается параметром.
type TreeBuilder struct {
	limits Limits
	logger *zap.Logger
}

func NewTreeBuilder(limits Limits, logger *zap.Logger) *TreeBuilder {
	return &TreeBuilder{limits: limits, logger: logger.Named("TreeBuilder")}
}

// Build сохраняет узел до его детей (pre-order), затем детей с depth+1,
// затем записывает упорядоченные варианты родителя. Возвращает ID узла.
//
// Без ошибок применяются правила:
//   - depth >= MaxDepth или IsEnding: узел сохраняется без вариантов;
//   - варианты сверх MaxOptions отбрасываются в порядке схемы;
//   - вариант без текста или без корректного дочернего узла пропускается.
func (b *TreeBuilder) Build(ctx context.Context, tx repository.StoryTx, storyID int64, node *schemas.NodeSchema, isRoot bool, depth int) (int64, error) {
	if node == nil {
		return 0, persistErr("build node", errors.New("node is nil"))
	}

	created, err := tx.CreateNode(ctx, storyID, node.Content, node.IsEnding, node.IsWinningEnding, isRoot)
	if err != nil {
		return 0, persistErr("create node", err)
	}
	if err := tx.Flush(ctx); err != nil {
		return 0, persistErr("flush", err)
	}

	if node.IsEnding || depth >= b.limits.MaxDepth {
		if len(node.Options) > 0 {
			b.logger.Debug("Dropping options of leaf node",
				zap.Int64("node_id", created.ID),
				zap.Int("depth", depth),
				zap.Bool("is_ending", node.IsEnding),
				zap.Int("dropped", len(node.Options)))
		}
		return created.ID, nil
	}

	options := node.Options
	if len(options) > b.limits.MaxOptions {
		b.logger.Debug("Truncating options",
			zap.Int64("node_id", created.ID),
			zap.Int("given", len(options)),
			zap.Int("kept", b.limits.MaxOptions))
		options = options[:b.limits.MaxOptions]
	}

	pairs := make([]models.Option, 0, len(options))
	for i, opt := range options {
		if strings.TrimSpace(opt.Text) == "" || opt.Next == nil || strings.TrimSpace(opt.Next.Content) == "" {
			b.logger.Debug("Skipping malformed option", zap.Int64("node_id", created.ID), zap.Int("index", i))
			continue
		}
		childID, err := b.Build(ctx, tx, storyID, opt.Next, false, depth+1)
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, models.Option{Text: opt.Text, NodeID: childID})
	}

	if len(pairs) > 0 {
		if err := tx.SetOptions(ctx, created, pairs); err != nil {
			return 0, persistErr("set options", err)
		}
	}
	return created.ID, nil
}
