package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AllDay is the time-of-day sentinel for routines with no fixed slot.
const AllDay = "All Day"

var twelveHourRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

func parseHHMM(s string) (h, m int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// ValidTimeOfDay accepts "HH:MM" in 24h form or the AllDay sentinel.
func ValidTimeOfDay(s string) bool {
	if s == AllDay {
		return true
	}
	if len(s) != 5 {
		return false
	}
	h, m, ok := parseHHMM(s)
	return ok && h >= 0 && h < 24 && m >= 0 && m < 60
}

// To12Hour converts "14:30" to "2:30 PM". Unparseable input is returned as is.
func To12Hour(time24 string) string {
	if time24 == "" || time24 == AllDay {
		return time24
	}
	h, m, ok := parseHHMM(time24)
	if !ok {
		return time24
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h
	switch {
	case h == 0:
		h12 = 12
	case h > 12:
		h12 = h - 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, period)
}

// To24Hour converts "2:30 PM" to "14:30". Unparseable input is returned as is.
func To24Hour(time12 string) string {
	if time12 == "" || time12 == AllDay {
		return time12
	}
	match := twelveHourRe.FindStringSubmatch(strings.TrimSpace(time12))
	if match == nil {
		return time12
	}
	h, _ := strconv.Atoi(match[1])
	m, _ := strconv.Atoi(match[2])
	period := strings.ToUpper(match[3])
	if period == "PM" && h != 12 {
		h += 12
	}
	if period == "AM" && h == 12 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// FormatTimeRange renders "6:00 AM - 7:15 AM", or just the start when end is empty.
func FormatTimeRange(start, end string) string {
	s := To12Hour(start)
	if end == "" {
		return s
	}
	return s + " - " + To12Hour(end)
}
