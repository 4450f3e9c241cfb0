// Package analytics derives streaks, daily statistics and heuristic insights
// from a user's routines and completion history. Every function is pure: the
// inputs are never mutated and the same inputs always give the same result,
// so callers may invoke them concurrently.
package analytics

import (
	"habitflow/internal/model"
)

// SuccessThreshold is the minimum daily completion rate (inclusive) for a
// day to count toward a streak.
const SuccessThreshold = 0.7

// dayTally counts the records stored for one calendar date.
type dayTally struct {
	records   int
	completed int
}

// rate divides by the routine count, not by the records present, so a day
// with partial data is still measured against the whole routine set.
func (d dayTally) rate(totalRoutines int) float64 {
	if d.records == 0 || totalRoutines <= 0 {
		return 0
	}
	return float64(d.completed) / float64(totalRoutines)
}

type tallies map[string]dayTally

func tallyByDate(completions []model.CompletionRecord) tallies {
	t := make(tallies)
	for _, c := range completions {
		d := t[c.Date]
		d.records++
		if c.Completed {
			d.completed++
		}
		t[c.Date] = d
	}
	return t
}

// averageRate is the mean daily rate over dates. Dates without records
// contribute 0. The completed counts are summed before dividing so equal
// inputs give bit-identical averages regardless of how many dates they span.
func (t tallies) averageRate(dates []string, totalRoutines int) float64 {
	if len(dates) == 0 || totalRoutines <= 0 {
		return 0
	}
	completed := 0
	for _, date := range dates {
		completed += t[date].completed
	}
	return float64(completed) / float64(len(dates)*totalRoutines)
}

func qualifies(rate float64) bool {
	return rate >= SuccessThreshold
}

// DayCompletionRate returns completed records on date divided by the number
// of routines, or 0 when the date has no records or there are no routines.
func DayCompletionRate(date string, completions []model.CompletionRecord, routines []model.RoutineItem) float64 {
	return tallyByDate(completions)[date].rate(len(routines))
}
