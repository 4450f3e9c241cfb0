package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitflow/internal/service"
	"habitflow/pkg/logger"
)

// Keys set on the gin context by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// UserID returns the authenticated user id; ok is false on public routes.
func UserID(c *gin.Context) (int, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

func mustUserID(c *gin.Context) (int, bool) {
	id, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return id, true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrRoutineNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailExists), errors.Is(err, service.ErrRoutineExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs and renders err. Internal errors get a generic message.
func writeError(c *gin.Context, l *zap.Logger, op string, err error) {
	status := statusFor(err)
	log := logger.WithTrace(c.Request.Context(), l)
	if status == http.StatusInternalServerError {
		log.Error(op+": failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	log.Info(op+": rejected", zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
