package analytics

import (
	"sort"
	"time"

	"habitflow/internal/dates"
	"habitflow/internal/model"
)

// currentStreakLookback bounds the backward walk in CurrentStreak.
const currentStreakLookback = 365

// StreakData is the pair shown on the streak cards. BestCalendarStreak is
// the strict variant that breaks runs on calendar gaps.
type StreakData struct {
	CurrentStreak      int `json:"current_streak"`
	BestStreak         int `json:"best_streak"`
	BestCalendarStreak int `json:"best_calendar_streak"`
}

// CurrentStreak counts consecutive qualifying days ending at now's calendar
// date. The first day below SuccessThreshold, including a day with no
// records at all, ends the walk.
func CurrentStreak(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time) int {
	t := tallyByDate(completions)
	total := len(routines)

	streak := 0
	for i := 0; i < currentStreakLookback; i++ {
		if !qualifies(t[dates.DaysAgo(now, i)].rate(total)) {
			break
		}
		streak++
	}
	return streak
}

// BestStreak returns the longest run of qualifying dates over the sorted
// dates that have any records. Dates with no records are skipped rather than
// counted as failures, so a run may span a calendar gap in the history.
func BestStreak(completions []model.CompletionRecord, routines []model.RoutineItem) int {
	return bestRun(completions, routines, false)
}

// BestCalendarStreak is BestStreak where a missing calendar day breaks the run.
func BestCalendarStreak(completions []model.CompletionRecord, routines []model.RoutineItem) int {
	return bestRun(completions, routines, true)
}

// Streaks computes all streak figures in one call.
func Streaks(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time) StreakData {
	return StreakData{
		CurrentStreak:      CurrentStreak(completions, routines, now),
		BestStreak:         BestStreak(completions, routines),
		BestCalendarStreak: BestCalendarStreak(completions, routines),
	}
}

func bestRun(completions []model.CompletionRecord, routines []model.RoutineItem, strictCalendar bool) int {
	t := tallyByDate(completions)
	if len(t) == 0 {
		return 0
	}
	sorted := make([]string, 0, len(t))
	for date := range t {
		sorted = append(sorted, date)
	}
	sort.Strings(sorted)

	total := len(routines)
	best, run := 0, 0
	prev := ""
	for _, date := range sorted {
		if !qualifies(t[date].rate(total)) {
			run = 0
			prev = date
			continue
		}
		if strictCalendar && run > 0 && dates.NextDay(prev) != date {
			run = 0
		}
		run++
		if run > best {
			best = run
		}
		prev = date
	}
	return best
}
