package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitflow/internal/model"
	"habitflow/internal/service"
)

type RoutineHandler struct {
	routines *service.RoutineService
	logger   *zap.Logger
}

func NewRoutineHandler(routines *service.RoutineService, logger *zap.Logger) *RoutineHandler {
	return &RoutineHandler{routines: routines, logger: logger}
}

func (h *RoutineHandler) List(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	routines, err := h.routines.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "ListRoutines", err)
		return
	}
	c.JSON(http.StatusOK, routines)
}

func (h *RoutineHandler) Create(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req service.NewRoutine
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.routines.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, h.logger, "CreateRoutine", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *RoutineHandler) Update(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var patch model.RoutinePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	item, err := h.routines.Update(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		writeError(c, h.logger, "UpdateRoutine", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *RoutineHandler) ToggleRequired(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	item, err := h.routines.ToggleRequired(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "ToggleRequired", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *RoutineHandler) Delete(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.routines.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.logger, "DeleteRoutine", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *RoutineHandler) Reset(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	n, err := h.routines.Reset(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "ResetRoutines", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}
