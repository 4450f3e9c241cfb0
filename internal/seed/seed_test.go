package seed

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitflow/internal/analytics"
	"habitflow/internal/dates"
	"habitflow/internal/model"
	"habitflow/internal/repository"
	"habitflow/internal/service"
)

var seedNow = time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

func TestRandSequence(t *testing.T) {
	r := NewRand(Seed)
	// 42 * 16807 = 705894
	assert.InDelta(t, float64(705894-1)/float64(2147483646), r.Float64(), 1e-12)

	for i := 0; i < 1000; i++ {
		v := r.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestCompletions_Deterministic(t *testing.T) {
	routines := model.DefaultRoutines()
	a := Completions(routines, seedNow, HistoryDays, NewRand(Seed))
	b := Completions(routines, seedNow, HistoryDays, NewRand(Seed))

	assert.Empty(t, cmp.Diff(a, b))
	require.Len(t, a, HistoryDays*len(routines))
	assert.Equal(t, dates.DaysAgo(seedNow, HistoryDays-1), a[0].Date)
	assert.Equal(t, "2026-03-18", a[len(a)-1].Date)
}

func TestCompletions_Shape(t *testing.T) {
	routines := model.DefaultRoutines()
	records := Completions(routines, seedNow, HistoryDays, NewRand(Seed))

	seen := map[[2]string]bool{}
	var weekday, weekdayDone, weekend, weekendDone int
	for _, r := range records {
		key := [2]string{r.Date, r.RoutineID}
		require.False(t, seen[key], "duplicate record %v", key)
		seen[key] = true

		day, err := dates.ParseISO(r.Date)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Timestamp, day.UnixMilli())
		assert.Less(t, r.Timestamp, day.Add(24*time.Hour).UnixMilli())

		if dates.IsWeekend(r.Date) {
			weekend++
			if r.Completed {
				weekendDone++
			}
		} else {
			weekday++
			if r.Completed {
				weekdayDone++
			}
		}
	}

	// loose bounds around p=0.70 and p=0.50
	assert.InDelta(t, 0.70, float64(weekdayDone)/float64(weekday), 0.15)
	assert.InDelta(t, 0.50, float64(weekendDone)/float64(weekend), 0.25)
}

func TestSeederRun(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	log := zap.NewNop()
	auth := service.NewAuthService(store.Users(), "seed-secret", 0, log).WithBcryptCost(bcrypt.MinCost)
	s := NewSeeder(store.Users(), auth, store.Routines(), store.Completions(), log)

	first, err := s.Run(ctx, seedNow)
	require.NoError(t, err)
	assert.Equal(t, DemoEmail, first.User.Email)
	assert.Equal(t, 8, first.Routines)
	assert.EqualValues(t, 240, first.Completions)

	// a second run reuses the user and rewrites the history
	second, err := s.Run(ctx, seedNow)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	history, err := store.Completions().ListByUser(ctx, first.User.ID, "")
	require.NoError(t, err)
	assert.Len(t, history, 240)

	_, _, err = auth.Login(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)

	routines, err := store.Routines().ListByUser(ctx, first.User.ID)
	require.NoError(t, err)
	report := analytics.BuildReport(history, routines, seedNow)
	assert.Len(t, report.Heatmap, 28)
	assert.LessOrEqual(t, len(report.Insights), 3)
}
