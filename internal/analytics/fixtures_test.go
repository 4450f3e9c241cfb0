package analytics

import (
	"fmt"
	"time"

	"habitflow/internal/dates"
	"habitflow/internal/model"
)

// 2026-03-18 is a Wednesday; the 30-day window starts Tuesday 2026-02-17
// and holds 22 weekdays and 8 weekend days.
var testNow = time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)

func makeRoutines(n int) []model.RoutineItem {
	out := make([]model.RoutineItem, n)
	for i := range out {
		out[i] = model.RoutineItem{
			ID:        fmt.Sprintf("r%d", i),
			Title:     fmt.Sprintf("Routine %d", i),
			Category:  model.CategoryWork,
			StartTime: "09:00",
			EndTime:   "09:30",
			Required:  true,
			Order:     i,
		}
	}
	return out
}

// day builds one record per routine for the date daysAgo before testNow;
// the first `completed` routines are marked done.
func day(routines []model.RoutineItem, daysAgo, completed int) []model.CompletionRecord {
	date := dates.DaysAgo(testNow, daysAgo)
	out := make([]model.CompletionRecord, 0, len(routines))
	for i, r := range routines {
		out = append(out, model.CompletionRecord{
			Date:      date,
			RoutineID: r.ID,
			Completed: i < completed,
			Timestamp: testNow.UnixMilli(),
		})
	}
	return out
}

// history concatenates day() for each daysAgo -> completed entry.
func history(routines []model.RoutineItem, perDay map[int]int) []model.CompletionRecord {
	var out []model.CompletionRecord
	for daysAgo, completed := range perDay {
		out = append(out, day(routines, daysAgo, completed)...)
	}
	return out
}

// month fills the 30-day insight window, picking the completed count from
// the weekday/weekend split.
func month(routines []model.RoutineItem, weekday, weekend int) []model.CompletionRecord {
	var out []model.CompletionRecord
	for i := 0; i < 30; i++ {
		n := weekday
		if dates.IsWeekend(dates.DaysAgo(testNow, i)) {
			n = weekend
		}
		out = append(out, day(routines, i, n)...)
	}
	return out
}

func categories(insights []Insight) []InsightCategory {
	out := make([]InsightCategory, len(insights))
	for i, in := range insights {
		out[i] = in.Category
	}
	return out
}
