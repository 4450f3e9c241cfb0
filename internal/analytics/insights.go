package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"habitflow/internal/dates"
	"habitflow/internal/model"
)

const (
	insightWindowDays = 30
	maxInsights       = 3

	weekendDropMargin  = 0.15
	bestDayFloor       = 0.5
	struggleCeiling    = 0.4
	highPerformerFloor = 0.8
	nightKeyword       = "night"
)

type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightInfo    InsightType = "info"
)

type InsightCategory string

const (
	CategoryWeekendDrop   InsightCategory = "weekend-drop"
	CategoryBestDay       InsightCategory = "best-day"
	CategoryStruggle      InsightCategory = "struggle"
	CategoryHighPerformer InsightCategory = "high-performer"
)

// Insight is one human-readable observation. Icon names a Material icon
// the client renders next to the card.
type Insight struct {
	ID          string          `json:"id"`
	Category    InsightCategory `json:"category"`
	Icon        string          `json:"icon"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        InsightType     `json:"type"`
}

func percent(rate float64) int {
	return int(math.Round(rate * 100))
}

// GenerateInsights scans the 30 days ending at now and returns at most three
// insights. Categories are tried in a fixed order (weekend drop-off, best
// day, struggling routine, high performer) and the list is cut after the
// third hit; nothing is re-ranked.
func GenerateInsights(completions []model.CompletionRecord, routines []model.RoutineItem, now time.Time) []Insight {
	window := dates.LastNDays(now, insightWindowDays)
	t := tallyByDate(completions)
	total := len(routines)

	generators := []func() (Insight, bool){
		func() (Insight, bool) { return weekendDrop(t, window, total) },
		func() (Insight, bool) { return bestDay(t, window, total) },
		func() (Insight, bool) { return struggle(completions, routines, window) },
		func() (Insight, bool) { return highPerformer(t, window, total) },
	}

	insights := make([]Insight, 0, maxInsights)
	for _, gen := range generators {
		if len(insights) == maxInsights {
			break
		}
		if in, ok := gen(); ok {
			insights = append(insights, in)
		}
	}
	return insights
}

func weekendDrop(t tallies, window []string, total int) (Insight, bool) {
	var weekdays, weekends []string
	for _, d := range window {
		if dates.IsWeekend(d) {
			weekends = append(weekends, d)
		} else {
			weekdays = append(weekdays, d)
		}
	}

	gap := t.averageRate(weekdays, total) - t.averageRate(weekends, total)
	if gap <= weekendDropMargin {
		return Insight{}, false
	}
	return Insight{
		ID:          string(CategoryWeekendDrop),
		Category:    CategoryWeekendDrop,
		Icon:        "lightbulb",
		Title:       "Productivity Trend",
		Description: fmt.Sprintf("Your completion rate drops by %d%% on weekends. Try setting easier goals for Saturdays.", percent(gap)),
		Type:        InsightWarning,
	}, true
}

func bestDay(t tallies, window []string, total int) (Insight, bool) {
	if total <= 0 {
		return Insight{}, false
	}

	var completed, occurrences [7]int
	for _, d := range window {
		wd, ok := dates.Weekday(d)
		if !ok {
			continue
		}
		completed[wd] += t[d].completed
		occurrences[wd]++
	}

	best, bestAvg := time.Sunday, 0.0
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if occurrences[wd] == 0 {
			continue
		}
		avg := float64(completed[wd]) / float64(occurrences[wd]*total)
		// strict comparison: the earliest day in the week wins ties
		if avg > bestAvg {
			best, bestAvg = wd, avg
		}
	}

	if bestAvg <= bestDayFloor {
		return Insight{}, false
	}
	return Insight{
		ID:          string(CategoryBestDay),
		Category:    CategoryBestDay,
		Icon:        "calendar_month",
		Title:       "Best Day",
		Description: fmt.Sprintf("You are most consistent on %ss, averaging %d%% completion.", dates.DayName(best), percent(bestAvg)),
		Type:        InsightInfo,
	}, true
}

// struggle reports the routine with the lowest completion rate below the
// ceiling. Unlike the other categories, the rate here is completed records
// over that routine's own records in the window; a routine with no records
// is treated as fully completed. Only one struggle insight is emitted, so
// the weakest routine is picked rather than the first one in routine order.
func struggle(completions []model.CompletionRecord, routines []model.RoutineItem, window []string) (Insight, bool) {
	inWindow := make(map[string]struct{}, len(window))
	for _, d := range window {
		inWindow[d] = struct{}{}
	}

	type tally struct{ attempts, completed int }
	perRoutine := make(map[string]tally, len(routines))
	for _, c := range completions {
		if _, ok := inWindow[c.Date]; !ok {
			continue
		}
		rt := perRoutine[c.RoutineID]
		rt.attempts++
		if c.Completed {
			rt.completed++
		}
		perRoutine[c.RoutineID] = rt
	}

	var worst *model.RoutineItem
	worstRate := struggleCeiling
	for i := range routines {
		rt := perRoutine[routines[i].ID]
		if rt.attempts == 0 {
			continue
		}
		rate := float64(rt.completed) / float64(rt.attempts)
		if rate < worstRate {
			worst, worstRate = &routines[i], rate
		}
	}
	if worst == nil {
		return Insight{}, false
	}

	in := Insight{
		ID:       fmt.Sprintf("%s-%s", CategoryStruggle, worst.ID),
		Category: CategoryStruggle,
	}
	if strings.Contains(strings.ToLower(worst.Title), nightKeyword) {
		in.Icon = "schedule"
		in.Title = "Time Optimization"
		in.Description = fmt.Sprintf("You miss \"%s\" %d%% of the time. Consider moving it to an earlier slot.", worst.Title, percent(1-worstRate))
		in.Type = InsightWarning
	} else {
		in.Icon = "trending_down"
		in.Title = "Low Completion"
		in.Description = fmt.Sprintf("\"%s\" has only %d%% weekly completion. Try shorter sessions.", worst.Title, percent(worstRate))
		in.Type = InsightInfo
	}
	return in, true
}

func highPerformer(t tallies, window []string, total int) (Insight, bool) {
	overall := t.averageRate(window, total)
	if overall <= highPerformerFloor {
		return Insight{}, false
	}
	return Insight{
		ID:          string(CategoryHighPerformer),
		Category:    CategoryHighPerformer,
		Icon:        "emoji_events",
		Title:       "Great Work!",
		Description: fmt.Sprintf("You're averaging %d%% completion over 30 days. Keep the momentum going!", percent(overall)),
		Type:        InsightInfo,
	}, true
}
