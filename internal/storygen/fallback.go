package storygen

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"
)

const (
	fallbackOptionText = "Continue the journey"
	fallbackRootText   = "You begin your %s adventure. The journey ahead is full of mysteries and choices that will determine your fate."
	fallbackEndingText = "Your %s adventure comes to an end. Though the path was uncertain, you emerged wiser from the experience."
)

// FallbackGenerator сохраняет минимальную историю из двух узлов,
// когда бэкенд недоступен или его ответ непригоден.
type FallbackGenerator struct {
	store  repository.StoryStore
	logger *zap.Logger
}

func NewFallbackGenerator(store repository.StoryStore, logger *zap.Logger) *FallbackGenerator {
	return &FallbackGenerator{store: store, logger: logger.Named("FallbackGenerator")}
}

// FallbackTitle возвращает "<Theme> Adventure", каждое слово темы с заглавной буквы.
func FallbackTitle(theme string) string {
	return cases.Title(language.English).String(theme) + " Adventure"
}

// Create сохраняет резервную историю в отдельной транзакции.
func (f *FallbackGenerator) Create(ctx context.Context, theme, sessionID string) (story *models.Story, err error) {
	tx, err := f.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFallbackFailed, persistErr("begin", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				f.logger.Error("Failed to rollback fallback story", zap.Error(rbErr))
			}
		}
	}()

	story, err = f.build(ctx, tx, theme, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFallbackFailed, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFallbackFailed, persistErr("commit", err))
	}

	f.logger.Info("Fallback story created",
		zap.Int64("story_id", story.ID),
		zap.String("session_id", sessionID),
		zap.String("theme", theme))
	return story, nil
}

func (f *FallbackGenerator) build(ctx context.Context, tx repository.StoryTx, theme, sessionID string) (*models.Story, error) {
	story, err := tx.CreateStory(ctx, FallbackTitle(theme), sessionID)
	if err != nil {
		return nil, persistErr("create story", err)
	}
	root, err := tx.CreateNode(ctx, story.ID, fmt.Sprintf(fallbackRootText, theme), false, false, true)
	if err != nil {
		return nil, persistErr("create root", err)
	}
	if err := tx.Flush(ctx); err != nil {
		return nil, persistErr("flush", err)
	}
	ending, err := tx.CreateNode(ctx, story.ID, fmt.Sprintf(fallbackEndingText, theme), true, true, false)
	if err != nil {
		return nil, persistErr("create ending", err)
	}
	if err := tx.SetOptions(ctx, root, []models.Option{{Text: fallbackOptionText, NodeID: ending.ID}}); err != nil {
		return nil, persistErr("set options", err)
	}
	story.Nodes = []*models.StoryNode{root, ending}
	return story, nil
}
