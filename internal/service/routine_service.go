package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/internal/dates"
	"habitflow/internal/model"
)

// NewRoutine is the create request. Nil fields take the defaults of the
// mobile client: 00:00 start, Work category, required.
type NewRoutine struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Category  *model.Category `json:"category"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Required  *bool           `json:"required"`
}

type RoutineService struct {
	routines  RoutineStore
	events    EventPublisher
	analytics AnalyticsInvalidator
	logger    *zap.Logger
}

func NewRoutineService(routines RoutineStore, events EventPublisher, analytics AnalyticsInvalidator, logger *zap.Logger) *RoutineService {
	if analytics == nil {
		analytics = noopInvalidator{}
	}
	return &RoutineService{routines: routines, events: events, analytics: analytics, logger: logger}
}

func (s *RoutineService) List(ctx context.Context, userID int) ([]model.RoutineItem, error) {
	return s.routines.ListByUser(ctx, userID)
}

func (s *RoutineService) Create(ctx context.Context, userID int, req NewRoutine) (model.RoutineItem, error) {
	item := model.RoutineItem{
		ID:        strings.TrimSpace(req.ID),
		Title:     strings.TrimSpace(req.Title),
		Category:  model.CategoryWork,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Required:  true,
	}
	if item.ID == "" {
		item.ID = "r_" + uuid.NewString()
	}
	if item.StartTime == "" {
		item.StartTime = "00:00"
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Required != nil {
		item.Required = *req.Required
	}
	if err := validateRoutine(item); err != nil {
		return model.RoutineItem{}, err
	}

	created, err := s.routines.Create(ctx, userID, item)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.RoutineItem{}, ErrRoutineExists
		}
		return model.RoutineItem{}, err
	}

	s.publish(ctx, userID, created.ID, "created")
	return created, nil
}

func (s *RoutineService) Update(ctx context.Context, userID int, routineID string, patch model.RoutinePatch) (model.RoutineItem, error) {
	if err := validatePatch(patch); err != nil {
		return model.RoutineItem{}, err
	}

	updated, err := s.routines.Update(ctx, userID, routineID, patch)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RoutineItem{}, ErrRoutineNotFound
	}
	if err != nil {
		return model.RoutineItem{}, err
	}

	s.publish(ctx, userID, routineID, "updated")
	return updated, nil
}

// ToggleRequired flips the routine's required flag.
func (s *RoutineService) ToggleRequired(ctx context.Context, userID int, routineID string) (model.RoutineItem, error) {
	routines, err := s.routines.ListByUser(ctx, userID)
	if err != nil {
		return model.RoutineItem{}, err
	}
	for _, r := range routines {
		if r.ID == routineID {
			required := !r.Required
			return s.Update(ctx, userID, routineID, model.RoutinePatch{Required: &required})
		}
	}
	return model.RoutineItem{}, ErrRoutineNotFound
}

func (s *RoutineService) Delete(ctx context.Context, userID int, routineID string) error {
	err := s.routines.Delete(ctx, userID, routineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRoutineNotFound
	}
	if err != nil {
		return err
	}

	s.publish(ctx, userID, routineID, "deleted")
	return nil
}

// Reset replaces the user's routines with the default set and returns how
// many were installed.
func (s *RoutineService) Reset(ctx context.Context, userID int) (int, error) {
	n, err := s.routines.ReplaceWithDefaults(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, userID, "", "reset")
	return n, nil
}

// publish follows every successful routine write, so it also drops the
// user's cached analytics.
func (s *RoutineService) publish(ctx context.Context, userID int, routineID, action string) {
	invalidateAnalytics(ctx, s.analytics, s.logger, userID)
	s.events.Publish(ctx, contractsmq.RoutingKeyRoutineChanged, contractsmq.HabitEvent{
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Routine: &contractsmq.RoutineChangedPayload{
			RoutineID: routineID,
			Action:    action,
		},
	})
}

func validateRoutine(r model.RoutineItem) error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, r.Category)
	}
	if !dates.ValidTimeOfDay(r.StartTime) {
		return fmt.Errorf("%w: start_time must be HH:MM or %q", ErrValidation, dates.AllDay)
	}
	if r.EndTime != "" && !dates.ValidTimeOfDay(r.EndTime) {
		return fmt.Errorf("%w: end_time must be HH:MM, %q or empty", ErrValidation, dates.AllDay)
	}
	return nil
}

func validatePatch(p model.RoutinePatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, *p.Category)
	}
	if p.StartTime != nil && !dates.ValidTimeOfDay(*p.StartTime) {
		return fmt.Errorf("%w: start_time must be HH:MM or %q", ErrValidation, dates.AllDay)
	}
	if p.EndTime != nil && *p.EndTime != "" && !dates.ValidTimeOfDay(*p.EndTime) {
		return fmt.Errorf("%w: end_time must be HH:MM, %q or empty", ErrValidation, dates.AllDay)
	}
	if p.Order != nil && *p.Order < 0 {
		return fmt.Errorf("%w: order must be non-negative", ErrValidation)
	}
	return nil
}
