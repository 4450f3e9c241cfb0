// Package syncstore is the client-side cache of a user's routines and
// completions. Mutations are applied locally first, written through to the
// API, and undone if the write fails.
package syncstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"habitflow/internal/analytics"
	"habitflow/internal/dates"
	"habitflow/internal/model"
)

// Remote is the API surface the store writes through to. *client.Client
// satisfies it.
type Remote interface {
	Routines(ctx context.Context) ([]model.RoutineItem, error)
	Completions(ctx context.Context, date string) ([]model.CompletionRecord, error)
	Toggle(ctx context.Context, date, routineID string) (model.CompletionRecord, error)
	CreateRoutine(ctx context.Context, r model.RoutineItem) (model.RoutineItem, error)
	UpdateRoutine(ctx context.Context, id string, patch model.RoutinePatch) (model.RoutineItem, error)
	DeleteRoutine(ctx context.Context, id string) error
	ResetRoutines(ctx context.Context) (int, error)
	ClearHistory(ctx context.Context) error
}

type Store struct {
	remote Remote
	now    func() time.Time
	logger *zap.Logger

	mu          sync.Mutex
	routines    []model.RoutineItem
	completions []model.CompletionRecord
}

func New(remote Remote, logger *zap.Logger) *Store {
	return &Store{
		remote: remote,
		now:    time.Now,
		logger: logger,
	}
}

// FetchAll replaces local state with the server's, loading both lists
// concurrently.
func (s *Store) FetchAll(ctx context.Context) error {
	var (
		routines    []model.RoutineItem
		completions []model.CompletionRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routines, err = s.remote.Routines(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = s.remote.Completions(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("fetch failed", zap.Error(err))
		return fmt.Errorf("fetch all: %w", err)
	}

	s.mu.Lock()
	s.routines = routines
	s.completions = completions
	s.mu.Unlock()
	return nil
}

// Snapshot returns copies of the current state.
func (s *Store) Snapshot() ([]model.RoutineItem, []model.CompletionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoutineItem(nil), s.routines...),
		append([]model.CompletionRecord(nil), s.completions...)
}

// Report runs the analytics engine over the local state.
func (s *Store) Report(now time.Time) analytics.Report {
	routines, completions := s.Snapshot()
	return analytics.BuildReport(completions, routines, now)
}

// writeThrough runs apply under the lock, calls the remote, and on failure
// runs the undo returned by apply.
func (s *Store) writeThrough(op string, apply func() (undo func()), remote func() error) error {
	s.mu.Lock()
	undo := apply()
	s.mu.Unlock()

	if err := remote(); err != nil {
		s.mu.Lock()
		undo()
		s.mu.Unlock()
		s.logger.Warn("write-through failed, rolled back", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) findCompletion(date, routineID string) int {
	for i, c := range s.completions {
		if c.Date == date && c.RoutineID == routineID {
			return i
		}
	}
	return -1
}

func (s *Store) findRoutine(id string) int {
	for i, r := range s.routines {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// ToggleTask flips today's completion of routineID.
func (s *Store) ToggleTask(ctx context.Context, routineID string) error {
	now := s.now()
	today := dates.Today(now)

	return s.writeThrough("toggle task", func() func() {
		if i := s.findCompletion(today, routineID); i >= 0 {
			prev := s.completions[i]
			s.completions[i].Completed = !prev.Completed
			s.completions[i].Timestamp = now.UnixMilli()
			return func() {
				if j := s.findCompletion(today, routineID); j >= 0 {
					s.completions[j].Completed = !s.completions[j].Completed
					s.completions[j].Timestamp = prev.Timestamp
				}
			}
		}
		s.completions = append(s.completions, model.CompletionRecord{
			Date:      today,
			RoutineID: routineID,
			Completed: true,
			Timestamp: now.UnixMilli(),
		})
		return func() {
			if j := s.findCompletion(today, routineID); j >= 0 {
				s.completions = append(s.completions[:j:j], s.completions[j+1:]...)
			}
		}
	}, func() error {
		_, err := s.remote.Toggle(ctx, today, routineID)
		return err
	})
}

// AddRoutine appends r (assigning an id when empty) and returns the item as
// stored by the server.
func (s *Store) AddRoutine(ctx context.Context, r model.RoutineItem) (model.RoutineItem, error) {
	if r.ID == "" {
		r.ID = "r_" + uuid.NewString()
	}

	var created model.RoutineItem
	err := s.writeThrough("add routine", func() func() {
		r.Order = len(s.routines)
		s.routines = append(s.routines, r)
		return func() {
			if i := s.findRoutine(r.ID); i >= 0 {
				s.routines = append(s.routines[:i:i], s.routines[i+1:]...)
			}
		}
	}, func() error {
		var err error
		created, err = s.remote.CreateRoutine(ctx, r)
		return err
	})
	if err != nil {
		return model.RoutineItem{}, err
	}

	s.mu.Lock()
	if i := s.findRoutine(created.ID); i >= 0 {
		s.routines[i] = created
	}
	s.mu.Unlock()
	return created, nil
}

func (s *Store) UpdateRoutine(ctx context.Context, id string, patch model.RoutinePatch) error {
	return s.writeThrough("update routine", func() func() {
		i := s.findRoutine(id)
		if i < 0 {
			return func() {}
		}
		prev := s.routines[i]
		s.routines[i] = patch.Apply(prev)
		return func() {
			if j := s.findRoutine(id); j >= 0 {
				s.routines[j] = prev
			}
		}
	}, func() error {
		_, err := s.remote.UpdateRoutine(ctx, id, patch)
		return err
	})
}

// ToggleRequired flips the required flag of routine id.
func (s *Store) ToggleRequired(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.findRoutine(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("toggle required: routine %q not found", id)
	}
	required := !s.routines[i].Required
	s.mu.Unlock()

	return s.UpdateRoutine(ctx, id, model.RoutinePatch{Required: &required})
}

// DeleteRoutine removes the routine and, like the server, its completions.
func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	return s.writeThrough("delete routine", func() func() {
		i := s.findRoutine(id)
		if i < 0 {
			return func() {}
		}
		removed := s.routines[i]
		s.routines = append(s.routines[:i:i], s.routines[i+1:]...)

		var removedCompletions []model.CompletionRecord
		kept := s.completions[:0:0]
		for _, c := range s.completions {
			if c.RoutineID == id {
				removedCompletions = append(removedCompletions, c)
				continue
			}
			kept = append(kept, c)
		}
		s.completions = kept

		return func() {
			at := min(i, len(s.routines))
			s.routines = append(s.routines[:at:at], append([]model.RoutineItem{removed}, s.routines[at:]...)...)
			s.completions = append(s.completions, removedCompletions...)
		}
	}, func() error {
		return s.remote.DeleteRoutine(ctx, id)
	})
}

// ClearHistory empties the local history. On failure the cleared records
// are restored, except those re-created locally in the meantime.
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.writeThrough("clear history", func() func() {
		cleared := s.completions
		s.completions = nil
		return func() {
			for _, c := range cleared {
				if s.findCompletion(c.Date, c.RoutineID) < 0 {
					s.completions = append(s.completions, c)
				}
			}
		}
	}, func() error {
		return s.remote.ClearHistory(ctx)
	})
}

// ResetRoutines is not optimistic: the server installs the defaults and the
// store refetches.
func (s *Store) ResetRoutines(ctx context.Context) error {
	if _, err := s.remote.ResetRoutines(ctx); err != nil {
		return fmt.Errorf("reset routines: %w", err)
	}
	return s.FetchAll(ctx)
}
