package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitflow/internal/service"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

func (h *AnalyticsHandler) Report(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	report, err := h.analytics.Report(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "AnalyticsReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) Streaks(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	streaks, err := h.analytics.Streaks(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "AnalyticsStreaks", err)
		return
	}
	c.JSON(http.StatusOK, streaks)
}

func (h *AnalyticsHandler) Insights(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	insights, err := h.analytics.Insights(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "AnalyticsInsights", err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
