// Package seed generates the demo account and its completion history.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"habitflow/internal/dates"
	"habitflow/internal/model"
)

const (
	DemoName     = "Alex"
	DemoEmail    = "demo@habittracker.app"
	DemoPassword = "demo123"

	HistoryDays = 30
	Seed        = 42

	weekdayProbability = 0.70
	weekendProbability = 0.50

	parkMillerModulus    = 2147483647
	parkMillerMultiplier = 16807
	msPerDay             = 24 * 60 * 60 * 1000
)

// Rand is the Park-Miller minimal standard generator. The same seed always
// yields the same sequence, so demo data is reproducible across runs.
type Rand struct {
	state int64
}

func NewRand(seed int64) *Rand {
	return &Rand{state: seed}
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state = (r.state * parkMillerMultiplier) % parkMillerModulus
	return float64(r.state-1) / float64(parkMillerModulus-1)
}

// Completions builds days of history ending at now for every routine, one
// record per routine and day. Weekdays complete with p=0.70 and weekends
// with p=0.50. Two draws are consumed per record: completion, then the
// time of day of the timestamp.
func Completions(routines []model.RoutineItem, now time.Time, days int, rng *Rand) []model.CompletionRecord {
	records := make([]model.CompletionRecord, 0, days*len(routines))
	for _, date := range dates.LastNDays(now, days) {
		p := weekdayProbability
		if dates.IsWeekend(date) {
			p = weekendProbability
		}

		day, err := time.ParseInLocation(dates.ISOLayout, date, now.Location())
		if err != nil {
			continue
		}
		for _, r := range routines {
			completed := rng.Float64() < p
			records = append(records, model.CompletionRecord{
				Date:      date,
				RoutineID: r.ID,
				Completed: completed,
				Timestamp: day.UnixMilli() + int64(rng.Float64()*msPerDay),
			})
		}
	}
	return records
}

type Users interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Registrar interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
}

type Routines interface {
	ReplaceWithDefaults(ctx context.Context, userID int) (int, error)
}

type CompletionWriter interface {
	DeleteAllByUser(ctx context.Context, userID int) (int64, error)
	InsertBatch(ctx context.Context, userID int, records []model.CompletionRecord) (int64, error)
}

// Seeder resets the demo account to a known state.
type Seeder struct {
	users       Users
	auth        Registrar
	routines    Routines
	completions CompletionWriter
	logger      *zap.Logger
}

func NewSeeder(users Users, auth Registrar, routines Routines, completions CompletionWriter, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:       users,
		auth:        auth,
		routines:    routines,
		completions: completions,
		logger:      logger,
	}
}

// Result summarises one seeding run.
type Result struct {
	User        *model.User
	Routines    int
	Completions int64
}

// Run creates the demo user when missing, replaces its routines with the
// defaults and rewrites its history.
func (s *Seeder) Run(ctx context.Context, now time.Time) (Result, error) {
	user, err := s.users.FindByEmail(ctx, DemoEmail)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Result{}, fmt.Errorf("seed: find demo user: %w", err)
	}
	if user == nil {
		user, err = s.auth.Register(ctx, DemoName, DemoEmail, DemoPassword)
		if err != nil {
			return Result{}, fmt.Errorf("seed: register demo user: %w", err)
		}
		s.logger.Info("created demo user", zap.Int("user_id", user.ID), zap.String("email", DemoEmail))
	}

	n, err := s.routines.ReplaceWithDefaults(ctx, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("seed: routines: %w", err)
	}

	if _, err := s.completions.DeleteAllByUser(ctx, user.ID); err != nil {
		return Result{}, fmt.Errorf("seed: clear history: %w", err)
	}
	records := Completions(model.DefaultRoutines(), now, HistoryDays, NewRand(Seed))
	inserted, err := s.completions.InsertBatch(ctx, user.ID, records)
	if err != nil {
		return Result{}, fmt.Errorf("seed: insert history: %w", err)
	}

	s.logger.Info("seed complete",
		zap.Int("user_id", user.ID),
		zap.Int("routines", n),
		zap.Int64("completions", inserted),
	)
	return Result{User: user, Routines: n, Completions: inserted}, nil
}
