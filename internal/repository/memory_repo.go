package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"habitflow/internal/model"
)

// MemoryStore keeps users, routines and completions in process. It mirrors
// the Postgres repositories, including their pgx.ErrNoRows and unique
// violation errors, and backs the "memory" storage mode and handler tests.
type MemoryStore struct {
	mu          sync.RWMutex
	nextUserID  int
	users       map[int]model.User
	routines    map[int][]model.RoutineItem
	completions map[int]map[completionID]model.CompletionRecord
}

type completionID struct {
	date      string
	routineID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[int]model.User{},
		routines:    map[int][]model.RoutineItem{},
		completions: map[int]map[completionID]model.CompletionRecord{},
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint", ConstraintName: constraint}
}

type MemoryUserRepository struct{ s *MemoryStore }

func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s} }

func (r *MemoryUserRepository) CreateUser(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return uniqueViolation("users_email_key")
		}
	}
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.CreatedAt = time.Now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id int) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

type MemoryRoutineRepository struct{ s *MemoryStore }

func (s *MemoryStore) Routines() *MemoryRoutineRepository { return &MemoryRoutineRepository{s} }

func (r *MemoryRoutineRepository) ListByUser(_ context.Context, userID int) ([]model.RoutineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := append([]model.RoutineItem{}, r.s.routines[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *MemoryRoutineRepository) Create(_ context.Context, userID int, item model.RoutineItem) (model.RoutineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.routines[userID] {
		if existing.ID == item.ID {
			return model.RoutineItem{}, uniqueViolation("routines_user_id_routine_id_key")
		}
	}
	item.Order = len(r.s.routines[userID])
	r.s.routines[userID] = append(r.s.routines[userID], item)
	return item, nil
}

func (r *MemoryRoutineRepository) Update(_ context.Context, userID int, routineID string, patch model.RoutinePatch) (model.RoutineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.routines[userID] {
		if existing.ID == routineID {
			updated := patch.Apply(existing)
			r.s.routines[userID][i] = updated
			return updated, nil
		}
	}
	return model.RoutineItem{}, pgx.ErrNoRows
}

func (r *MemoryRoutineRepository) Delete(_ context.Context, userID int, routineID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.routines[userID]
	for i, existing := range list {
		if existing.ID != routineID {
			continue
		}
		r.s.routines[userID] = append(list[:i:i], list[i+1:]...)
		for id := range r.s.completions[userID] {
			if id.routineID == routineID {
				delete(r.s.completions[userID], id)
			}
		}
		return nil
	}
	return pgx.ErrNoRows
}

func (r *MemoryRoutineRepository) ReplaceWithDefaults(_ context.Context, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.routines[userID] = model.DefaultRoutines()
	return len(r.s.routines[userID]), nil
}

type MemoryCompletionRepository struct{ s *MemoryStore }

func (s *MemoryStore) Completions() *MemoryCompletionRepository {
	return &MemoryCompletionRepository{s}
}

func sortRecords(records []model.CompletionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].RoutineID < records[j].RoutineID
	})
}

func (r *MemoryCompletionRepository) ListByUser(_ context.Context, userID int, date string) ([]model.CompletionRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.CompletionRecord{}
	for id, rec := range r.s.completions[userID] {
		if date == "" || id.date == date {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryCompletionRepository) ListSince(_ context.Context, userID int, from string) ([]model.CompletionRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.CompletionRecord{}
	for id, rec := range r.s.completions[userID] {
		if id.date >= from {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryCompletionRepository) Toggle(_ context.Context, userID int, date, routineID string, now time.Time) (model.CompletionRecord, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.completions[userID] == nil {
		r.s.completions[userID] = map[completionID]model.CompletionRecord{}
	}
	id := completionID{date, routineID}
	rec, exists := r.s.completions[userID][id]
	if exists {
		rec.Completed = !rec.Completed
	} else {
		rec = model.CompletionRecord{Date: date, RoutineID: routineID, Completed: true}
	}
	rec.Timestamp = now.UnixMilli()
	r.s.completions[userID][id] = rec
	return rec, !exists, nil
}

func (r *MemoryCompletionRepository) DeleteAllByUser(_ context.Context, userID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.completions[userID]))
	delete(r.s.completions, userID)
	return n, nil
}

func (r *MemoryCompletionRepository) InsertBatch(_ context.Context, userID int, records []model.CompletionRecord) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.completions[userID] == nil {
		r.s.completions[userID] = map[completionID]model.CompletionRecord{}
	}
	for _, rec := range records {
		if _, dup := r.s.completions[userID][completionID{rec.Date, rec.RoutineID}]; dup {
			return 0, fmt.Errorf("insert completions: %w", uniqueViolation("completions_user_id_date_routine_id_key"))
		}
	}
	for _, rec := range records {
		r.s.completions[userID][completionID{rec.Date, rec.RoutineID}] = rec
	}
	return int64(len(records)), nil
}
