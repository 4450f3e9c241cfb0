package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/internal/dates"
	"habitflow/internal/model"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
)

type CompletionService struct {
	completions CompletionStore
	events      EventPublisher
	analytics   AnalyticsInvalidator
	now         func() time.Time
	logger      *zap.Logger
}

func NewCompletionService(completions CompletionStore, events EventPublisher, analytics AnalyticsInvalidator, logger *zap.Logger) *CompletionService {
	if analytics == nil {
		analytics = noopInvalidator{}
	}
	return &CompletionService{
		completions: completions,
		events:      events,
		analytics:   analytics,
		now:         time.Now,
		logger:      logger,
	}
}

// List returns all records, or those on date when it is non-empty.
func (s *CompletionService) List(ctx context.Context, userID int, date string) ([]model.CompletionRecord, error) {
	if date != "" && !dates.Valid(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return s.completions.ListByUser(ctx, userID, date)
}

// Toggle flips routineID on date (today when empty). created reports whether
// a new record was written.
func (s *CompletionService) Toggle(ctx context.Context, userID int, date, routineID string) (model.CompletionRecord, bool, error) {
	now := s.now()
	if date == "" {
		date = dates.Today(now)
	}
	if !dates.Valid(date) {
		return model.CompletionRecord{}, false, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if routineID == "" {
		return model.CompletionRecord{}, false, fmt.Errorf("%w: routine_id is required", ErrValidation)
	}

	record, created, err := s.completions.Toggle(ctx, userID, date, routineID, now)
	if err != nil {
		return model.CompletionRecord{}, false, err
	}
	metrics.IncrementToggle(record.Completed)
	invalidateAnalytics(ctx, s.analytics, s.logger, userID)

	s.events.Publish(ctx, contractsmq.RoutingKeyCompletionToggled, contractsmq.HabitEvent{
		UserID:     userID,
		Date:       date,
		OccurredAt: now.UTC(),
		Completion: &contractsmq.CompletionToggledPayload{
			RoutineID: routineID,
			Completed: record.Completed,
		},
	})
	return record, created, nil
}

// ClearHistory deletes every completion record of the user.
func (s *CompletionService) ClearHistory(ctx context.Context, userID int) (int64, error) {
	n, err := s.completions.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	invalidateAnalytics(ctx, s.analytics, s.logger, userID)
	s.events.Publish(ctx, contractsmq.RoutingKeyHistoryCleared, contractsmq.HabitEvent{
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	})
	return n, nil
}

// invalidateAnalytics runs after a successful write. A failure is logged and
// left to the cache TTL and the worker refresh.
func invalidateAnalytics(ctx context.Context, inv AnalyticsInvalidator, log *zap.Logger, userID int) {
	if err := inv.Invalidate(ctx, userID); err != nil {
		logger.WithTrace(ctx, log).Warn("Failed to invalidate analytics cache",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
}
