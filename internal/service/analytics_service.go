package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"habitflow/internal/analytics"
	"habitflow/internal/dates"
	"habitflow/internal/model"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
)

type AnalyticsService struct {
	routines    RoutineStore
	completions CompletionStore
	cache       ReportCache
	now         func() time.Time
	logger      *zap.Logger
}

func NewAnalyticsService(routines RoutineStore, completions CompletionStore, cache ReportCache, logger *zap.Logger) *AnalyticsService {
	if cache == nil {
		cache = NoopReportCache{}
	}
	return &AnalyticsService{
		routines:    routines,
		completions: completions,
		cache:       cache,
		now:         time.Now,
		logger:      logger,
	}
}

// Report returns the user's analytics for today, from cache when possible.
// Cache failures degrade to a fresh computation.
func (s *AnalyticsService) Report(ctx context.Context, userID int) (analytics.Report, error) {
	now := s.now()
	today := dates.Today(now)
	log := logger.WithTrace(ctx, s.logger)

	cached, err := s.cache.Get(ctx, userID, today)
	switch {
	case err == nil:
		metrics.IncrementCacheResult("hit")
		return *cached, nil
	case errors.Is(err, ErrCacheMiss):
		metrics.IncrementCacheResult("miss")
	default:
		metrics.IncrementCacheResult("error")
		log.Warn("Analytics cache read failed", zap.Int("user_id", userID), zap.Error(err))
	}

	report, err := s.compute(ctx, userID, now)
	if err != nil {
		return analytics.Report{}, err
	}

	if err := s.cache.Set(ctx, userID, today, report); err != nil {
		log.Warn("Analytics cache write failed", zap.Int("user_id", userID), zap.Error(err))
	}
	return report, nil
}

func (s *AnalyticsService) Streaks(ctx context.Context, userID int) (analytics.StreakData, error) {
	report, err := s.Report(ctx, userID)
	return report.Streaks, err
}

func (s *AnalyticsService) Insights(ctx context.Context, userID int) ([]analytics.Insight, error) {
	report, err := s.Report(ctx, userID)
	return report.Insights, err
}

// Invalidate drops the user's cached reports.
func (s *AnalyticsService) Invalidate(ctx context.Context, userID int) error {
	return s.cache.Invalidate(ctx, userID)
}

// Refresh recomputes and stores today's report, replacing stale entries.
func (s *AnalyticsService) Refresh(ctx context.Context, userID int) error {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate analytics cache: %w", err)
	}
	now := s.now()
	report, err := s.compute(ctx, userID, now)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, userID, dates.Today(now), report); err != nil {
		return fmt.Errorf("store analytics report: %w", err)
	}
	return nil
}

func (s *AnalyticsService) compute(ctx context.Context, userID int, now time.Time) (analytics.Report, error) {
	var (
		routines    []model.RoutineItem
		completions []model.CompletionRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routines, err = s.routines.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load routines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		completions, err = s.completions.ListByUser(gctx, userID, "")
		if err != nil {
			return fmt.Errorf("load completions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.Report{}, err
	}

	start := time.Now()
	report := analytics.BuildReport(completions, routines, now)
	metrics.RecordAnalyticsCompute(time.Since(start))
	for _, in := range report.Insights {
		metrics.IncrementInsight(string(in.Category))
	}

	logger.WithTrace(ctx, s.logger).Debug("Analytics report computed",
		zap.Int("user_id", userID),
		zap.Int("routines", len(routines)),
		zap.Int("completions", len(completions)),
		zap.Int("current_streak", report.Streaks.CurrentStreak),
		zap.Int("insights", len(report.Insights)),
	)
	return report, nil
}
