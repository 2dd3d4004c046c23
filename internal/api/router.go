package api

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions - настройки HTTP слоя.
type RouterOptions struct {
	AllowedOrigins []string
	// CreateLimitPerMinute ограничивает POST /api/stories/create по IP. 0 отключает лимит.
	CreateLimitPerMinute uint
	// MetricsHandler монтируется на /metrics, если не nil.
	MetricsHandler http.Handler
}

// NewRouter собирает gin.Engine: логирование, recovery, CORS и маршруты API.
func NewRouter(h *Handler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(GinZapLogger(logger.Named("HTTP")))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	var createMiddleware []gin.HandlerFunc
	if opts.CreateLimitPerMinute > 0 {
		createMiddleware = append(createMiddleware, createRateLimiter(opts.CreateLimitPerMinute, logger))
	}
	h.RegisterRoutes(router, createMiddleware...)

	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	return router
}

// createRateLimiter - лимит запросов на генерацию с одного IP в минуту.
func createRateLimiter(limit uint, logger *zap.Logger) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.Time("reset_time", info.ResetTime))
			abortWithError(c, http.StatusTooManyRequests, ErrCodeTooManyRequests,
				"too many requests, try again in "+time.Until(info.ResetTime).Round(time.Second).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
