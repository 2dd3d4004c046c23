package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/models"
	"adventure-server/internal/repository"
)

const (
	sessionCookie    = "session_id"
	sessionCookieTTL = 30 * 24 * time.Hour
)

// JobSubmitter создает задачу генерации.
type JobSubmitter interface {
	Submit(ctx context.Context, theme, sessionID string) (*models.JobRecord, error)
}

// JobReader читает задачи.
type JobReader interface {
	GetByJobID(ctx context.Context, jobID string) (*models.JobRecord, error)
}

// StoryReader читает истории вместе с узлами.
type StoryReader interface {
	GetStory(ctx context.Context, id int64) (*models.Story, error)
}

// HealthChecker сообщает о доступности бэкенда генерации.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Handler обрабатывает HTTP запросы генератора историй.
type Handler struct {
	submitter JobSubmitter
	jobs      JobReader
	stories   StoryReader
	health    HealthChecker
	logger    *zap.Logger
}

func NewHandler(submitter JobSubmitter, jobs JobReader, stories StoryReader, health HealthChecker, logger *zap.Logger) *Handler {
	return &Handler{
		submitter: submitter,
		jobs:      jobs,
		stories:   stories,
		health:    health,
		logger:    logger.Named("APIHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API. createMiddleware применяется
// только к созданию истории (rate limit).
func (h *Handler) RegisterRoutes(router gin.IRouter, createMiddleware ...gin.HandlerFunc) {
	router.GET("/health", h.healthCheck)
	router.HEAD("/health", h.healthCheck)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/stories/create", append(createMiddleware, h.createStory)...)
		apiGroup.GET("/stories/:id/complete", h.getCompleteStory)
		apiGroup.GET("/jobs/:id", h.getJob)
	}
}

type createStoryRequest struct {
	Theme string `json:"theme" binding:"max=200"`
}

// createStory ставит генерацию в очередь и сразу возвращает задачу.
func (h *Handler) createStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create story request", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	sessionID := h.ensureSession(c)
	job, err := h.submitter.Submit(c.Request.Context(), req.Theme, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (h *Handler) getJob(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.GetByJobID(c.Request.Context(), jobID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type completeStoryResponse struct {
	*models.Story
	RootNodeID int64 `json:"root_node_id"`
}

func (h *Handler) getCompleteStory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid story id")
		return
	}

	story, err := h.stories.GetStory(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	root := story.Root()
	if root == nil {
		h.logger.Error("Story has no root node", zap.Int64("story_id", id))
		abortWithError(c, http.StatusInternalServerError, ErrCodeInternal, "story has no root node")
		return
	}
	c.JSON(http.StatusOK, completeStoryResponse{Story: story, RootNodeID: root.ID})
}

func (h *Handler) healthCheck(c *gin.Context) {
	backend := "unavailable"
	if h.health != nil && h.health.IsHealthy(c.Request.Context()) {
		backend = "ok"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": backend})
}

// ensureSession возвращает session_id из cookie, создавая новый при отсутствии.
func (h *Handler) ensureSession(c *gin.Context) string {
	if sessionID, err := c.Cookie(sessionCookie); err == nil && sessionID != "" {
		return sessionID
	}
	sessionID := uuid.NewString()
	c.SetCookie(sessionCookie, sessionID, int(sessionCookieTTL.Seconds()), "/", "", false, true)
	h.logger.Debug("New session created", zap.String("session_id", sessionID))
	return sessionID
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, context.Canceled):
		abortWithError(c, 499, ErrCodeCanceled, "request canceled")
	default:
		h.logger.Error("Unhandled internal error", zap.Error(err), zap.String("path", c.FullPath()))
		abortWithError(c, http.StatusInternalServerError, ErrCodeInternal, "an unexpected internal error occurred")
	}
}
