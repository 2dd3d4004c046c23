package api

import "github.com/gin-gonic/gin"

// Коды ошибок API.
const (
	ErrCodeBadRequest      = 40001
	ErrCodeNotFound        = 40401
	ErrCodeTooManyRequests = 42901
	ErrCodeCanceled        = 49901
	ErrCodeInternal        = 50001
)

// ErrorResponse - стандартный ответ об ошибке.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
