package service

import (
	"context"
	"time"

	"habitflow/internal/model"
)

// The stores below are satisfied by the pgx repositories in
// internal/repository and by in-memory fakes in tests.

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type RoutineStore interface {
	ListByUser(ctx context.Context, userID int) ([]model.RoutineItem, error)
	Create(ctx context.Context, userID int, item model.RoutineItem) (model.RoutineItem, error)
	Update(ctx context.Context, userID int, routineID string, patch model.RoutinePatch) (model.RoutineItem, error)
	Delete(ctx context.Context, userID int, routineID string) error
	ReplaceWithDefaults(ctx context.Context, userID int) (int, error)
}

type CompletionStore interface {
	ListByUser(ctx context.Context, userID int, date string) ([]model.CompletionRecord, error)
	Toggle(ctx context.Context, userID int, date, routineID string, now time.Time) (model.CompletionRecord, bool, error)
	DeleteAllByUser(ctx context.Context, userID int) (int64, error)
}

// AnalyticsInvalidator drops cached analytics after a write so the next read
// is recomputed. *AnalyticsService satisfies it.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, userID int) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, int) error { return nil }
