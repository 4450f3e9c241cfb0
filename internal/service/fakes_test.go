package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	contractsmq "habitflow/contracts/mq"
	"habitflow/internal/analytics"
	"habitflow/internal/model"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int]*model.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeRoutines struct {
	mu     sync.Mutex
	byUser map[int][]model.RoutineItem
	err    error
}

func newFakeRoutines() *fakeRoutines {
	return &fakeRoutines{byUser: map[int][]model.RoutineItem{}}
}

func (f *fakeRoutines) ListByUser(_ context.Context, userID int) ([]model.RoutineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := append([]model.RoutineItem{}, f.byUser[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeRoutines) Create(_ context.Context, userID int, item model.RoutineItem) (model.RoutineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.Order = len(f.byUser[userID])
	f.byUser[userID] = append(f.byUser[userID], item)
	return item, nil
}

func (f *fakeRoutines) Update(_ context.Context, userID int, routineID string, patch model.RoutinePatch) (model.RoutineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.byUser[userID] {
		if r.ID == routineID {
			f.byUser[userID][i] = patch.Apply(r)
			return f.byUser[userID][i], nil
		}
	}
	return model.RoutineItem{}, pgx.ErrNoRows
}

func (f *fakeRoutines) Delete(_ context.Context, userID int, routineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.byUser[userID]
	for i, r := range list {
		if r.ID == routineID {
			f.byUser[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeRoutines) ReplaceWithDefaults(_ context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[userID] = model.DefaultRoutines()
	return len(f.byUser[userID]), nil
}

type completionKey struct {
	user      int
	date      string
	routineID string
}

type fakeCompletions struct {
	mu      sync.Mutex
	records map[completionKey]model.CompletionRecord
}

func newFakeCompletions() *fakeCompletions {
	return &fakeCompletions{records: map[completionKey]model.CompletionRecord{}}
}

func (f *fakeCompletions) add(userID int, recs ...model.CompletionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		f.records[completionKey{userID, r.Date, r.RoutineID}] = r
	}
}

func (f *fakeCompletions) ListByUser(_ context.Context, userID int, date string) ([]model.CompletionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.CompletionRecord{}
	for k, r := range f.records {
		if k.user == userID && (date == "" || k.date == date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].RoutineID < out[j].RoutineID
	})
	return out, nil
}

func (f *fakeCompletions) Toggle(_ context.Context, userID int, date, routineID string, now time.Time) (model.CompletionRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := completionKey{userID, date, routineID}
	r, exists := f.records[k]
	if exists {
		r.Completed = !r.Completed
	} else {
		r = model.CompletionRecord{Date: date, RoutineID: routineID, Completed: true}
	}
	r.Timestamp = now.UnixMilli()
	f.records[k] = r
	return r, !exists, nil
}

func (f *fakeCompletions) DeleteAllByUser(_ context.Context, userID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.records {
		if k.user == userID {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

type publishedEvent struct {
	routingKey string
	event      contractsmq.HabitEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event contractsmq.HabitEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey, event})
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.routingKey
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	reports map[string]analytics.Report
	sets    int
}

func newMemCache() *memCache {
	return &memCache{reports: map[string]analytics.Report{}}
}

func (c *memCache) Get(_ context.Context, userID int, date string) (*analytics.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[ReportCacheKey(userID, date)]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &r, nil
}

func (c *memCache) Set(_ context.Context, userID int, date string, report analytics.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.reports[ReportCacheKey(userID, date)] = report
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.reports {
		if strings.HasPrefix(k, ReportCacheKey(userID, "")) {
			delete(c.reports, k)
		}
	}
	return nil
}
