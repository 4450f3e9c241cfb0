package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "habitflow/contracts/mq"
	"habitflow/pkg/logger"
)

const analyticsRefreshName = "analytics_refresh"

// Refresher rebuilds a user's cached analytics.
type Refresher interface {
	Refresh(ctx context.Context, userID int) error
}

// Deduper is satisfied by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, eventID string) bool
	Release(ctx context.Context, handler string, eventID string)
}

// AnalyticsRefreshHandler recomputes a user's report whenever their routines
// or completions change, so the next read is a cache hit.
type AnalyticsRefreshHandler struct {
	analytics Refresher
	deduper   Deduper
	logger    *zap.Logger
}

// NewAnalyticsRefreshHandler builds the handler. deduper may be nil when
// Redis is not configured.
func NewAnalyticsRefreshHandler(analytics Refresher, deduper Deduper, logger *zap.Logger) *AnalyticsRefreshHandler {
	return &AnalyticsRefreshHandler{
		analytics: analytics,
		deduper:   deduper,
		logger:    logger,
	}
}

func (h *AnalyticsRefreshHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var ev mqcontracts.HabitEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Error("Failed to unmarshal habit event", zap.Error(err))
		return err
	}
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("event_id", ev.EventID),
		zap.String("type", ev.Type),
		zap.Int("user_id", ev.UserID),
	)

	if ev.UserID <= 0 {
		log.Error("Invalid user_id in habit event")
		return fmt.Errorf("invalid user_id %d in %s event", ev.UserID, ev.Type)
	}

	if h.deduper != nil && ev.EventID != "" {
		if !h.deduper.AcquireOnce(ctx, analyticsRefreshName, ev.EventID) {
			return nil
		}
	}

	if err := h.analytics.Refresh(ctx, ev.UserID); err != nil {
		log.Error("Failed to refresh analytics", zap.Error(err))
		if h.deduper != nil && ev.EventID != "" {
			h.deduper.Release(ctx, analyticsRefreshName, ev.EventID)
		}
		return err
	}

	log.Info("Analytics refreshed")
	return nil
}
