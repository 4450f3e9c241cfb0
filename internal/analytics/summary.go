package analytics

import (
	"time"

	"habitflow/internal/dates"
	"habitflow/internal/model"
)

const (
	WeeklyDays  = 7
	HeatmapDays = 28
)

type DayStats struct {
	Date       string  `json:"date"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"` // 0..1
}

// TodaySummary backs the progress ring. Percentage is a rounded 0-100 value.
type TodaySummary struct {
	Date       string `json:"date"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Status     string `json:"status"`
}

// Report bundles everything the analytics screen needs.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Today       TodaySummary `json:"today"`
	Streaks     StreakData   `json:"streaks"`
	Weekly      []DayStats   `json:"weekly"`
	Heatmap     []float64    `json:"heatmap"`
	Insights    []Insight    `json:"insights"`
}

func statusText(pct int) string {
	switch {
	case pct >= 80:
		return "Great work!"
	case pct >= 50:
		return "Almost there"
	case pct >= 25:
		return "Good start"
	default:
		return "Keep going!"
	}
}

// Today counts today's completions routine by routine, so records for
// routines that no longer exist are ignored.
func Today(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time) TodaySummary {
	today := dates.Today(now)
	done := make(map[string]bool)
	for _, c := range completions {
		if c.Date == today && c.Completed {
			done[c.RoutineID] = true
		}
	}

	completed := 0
	for _, r := range routines {
		if done[r.ID] {
			completed++
		}
	}

	pct := 0
	if len(routines) > 0 {
		pct = percent(float64(completed) / float64(len(routines)))
	}
	return TodaySummary{
		Date:       today,
		Completed:  completed,
		Total:      len(routines),
		Percentage: pct,
		Status:     statusText(pct),
	}
}

// LastNDaysStats returns per-day stats for the n days ending today, oldest first.
func LastNDaysStats(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time, n int) []DayStats {
	t := tallyByDate(completions)
	total := len(routines)

	days := dates.LastNDays(now, n)
	out := make([]DayStats, 0, len(days))
	for _, d := range days {
		stats := DayStats{Date: d, Completed: t[d].completed, Total: total}
		if total > 0 {
			stats.Percentage = float64(stats.Completed) / float64(total)
		}
		out = append(out, stats)
	}
	return out
}

// Heatmap returns the daily completion rate for the n days ending today.
func Heatmap(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time, n int) []float64 {
	stats := LastNDaysStats(completions, routines, now, n)
	out := make([]float64, len(stats))
	for i, s := range stats {
		out[i] = s.Percentage
	}
	return out
}

func BuildReport(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time) Report {
	return Report{
		GeneratedAt: now,
		Today:       Today(completions, routines, now),
		Streaks:     Streaks(completions, routines, now),
		Weekly:      LastNDaysStats(completions, routines, now, WeeklyDays),
		Heatmap:     Heatmap(completions, routines, now, HeatmapDays),
		Insights:    GenerateInsights(completions, routines, now),
	}
}
