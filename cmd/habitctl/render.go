package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"habitflow/internal/analytics"
	"habitflow/internal/dates"
	"habitflow/internal/model"
)

const barWidth = 20

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func bar(rate float64) string {
	filled := int(math.Round(rate * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + gray(strings.Repeat("░", barWidth-filled))
}

func renderToday(w io.Writer, routines []model.RoutineItem, completions []model.CompletionRecord, now time.Time) {
	today := dates.Today(now)
	done := make(map[string]bool)
	for _, c := range completions {
		if c.Date == today {
			done[c.RoutineID] = c.Completed
		}
	}

	fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("%s! %s", dates.Greeting(now), today)))
	for _, r := range routines {
		mark := gray("○")
		if done[r.ID] {
			mark = green("●")
		}
		optional := ""
		if !r.Required {
			optional = gray(" (optional)")
		}
		fmt.Fprintf(w, "  %s %-4s %-22s %s%s\n", mark, r.ID, r.Title, gray(dates.FormatTimeRange(r.StartTime, r.EndTime)), optional)
	}

	summary := analytics.Today(completions, routines, now)
	fmt.Fprintf(w, "\n  %d/%d done (%d%%) %s\n\n", summary.Completed, summary.Total, summary.Percentage, yellow(summary.Status))
}

func renderReport(w io.Writer, r analytics.Report) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Streaks ==="))
	fmt.Fprintf(w, "  Current:         %s days\n", green(r.Streaks.CurrentStreak))
	fmt.Fprintf(w, "  Best:            %d days\n", r.Streaks.BestStreak)
	fmt.Fprintf(w, "  Best (calendar): %d days\n", r.Streaks.BestCalendarStreak)

	fmt.Fprintf(w, "\n%s\n", cyan("=== Last 7 days ==="))
	for _, d := range r.Weekly {
		fmt.Fprintf(w, "  %s %s %3d%%\n", dates.DayAbbr(d.Date), bar(d.Percentage), int(math.Round(d.Percentage*100)))
	}

	fmt.Fprintf(w, "\n%s\n", cyan("=== Insights ==="))
	if len(r.Insights) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("Not enough history yet"))
	}
	for _, in := range r.Insights {
		title := yellow(in.Title)
		if in.Type == analytics.InsightWarning {
			title = red(in.Title)
		}
		fmt.Fprintf(w, "  %s\n    %s\n", title, in.Description)
	}
	fmt.Fprintln(w)
}
