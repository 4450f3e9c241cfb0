package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitflow/internal/service"
)

type CompletionHandler struct {
	completions *service.CompletionService
	logger      *zap.Logger
}

func NewCompletionHandler(completions *service.CompletionService, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{completions: completions, logger: logger}
}

type ToggleRequest struct {
	Date      string `json:"date"`
	RoutineID string `json:"routine_id"`
}

// List serves GET /api/completions?date=YYYY-MM-DD; without date it returns
// the whole history.
func (h *CompletionHandler) List(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	records, err := h.completions.List(c.Request.Context(), userID, c.Query("date"))
	if err != nil {
		writeError(c, h.logger, "ListCompletions", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Toggle answers 201 when a record was created and 200 when one was flipped.
func (h *CompletionHandler) Toggle(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	record, created, err := h.completions.Toggle(c.Request.Context(), userID, req.Date, req.RoutineID)
	if err != nil {
		writeError(c, h.logger, "ToggleCompletion", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, record)
}

func (h *CompletionHandler) Clear(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	n, err := h.completions.ClearHistory(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "ClearHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}
