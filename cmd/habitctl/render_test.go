package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"habitflow/internal/analytics"
	"habitflow/internal/model"
)

func init() {
	color.NoColor = true
}

func TestRenderToday(t *testing.T) {
	now := time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC)
	routines := model.DefaultRoutines()[:2]
	completions := []model.CompletionRecord{
		{Date: "2026-03-18", RoutineID: "r1", Completed: true},
		{Date: "2026-03-17", RoutineID: "r2", Completed: true},
	}

	var buf bytes.Buffer
	renderToday(&buf, routines, completions, now)
	out := buf.String()

	assert.Contains(t, out, "Good morning! 2026-03-18")
	assert.Contains(t, out, "● r1")
	assert.Contains(t, out, "○ r2")
	assert.Contains(t, out, "1/2 done (50%)")
}

func TestRenderReport(t *testing.T) {
	report := analytics.Report{
		Streaks: analytics.StreakData{CurrentStreak: 4, BestStreak: 9, BestCalendarStreak: 7},
		Weekly:  []analytics.DayStats{{Date: "2026-03-18", Completed: 4, Total: 8, Percentage: 0.5}},
		Insights: []analytics.Insight{{
			Title:       "Best Day",
			Description: "You are most consistent on Mondays, averaging 90% completion.",
			Type:        analytics.InsightInfo,
		}},
	}

	var buf bytes.Buffer
	renderReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Current:         4 days")
	assert.Contains(t, out, "Best (calendar): 7 days")
	assert.Contains(t, out, "  W █")
	assert.Contains(t, out, " 50%")
	assert.Contains(t, out, "Best Day")

	buf.Reset()
	renderReport(&buf, analytics.Report{})
	assert.Contains(t, buf.String(), "Not enough history yet")
}
