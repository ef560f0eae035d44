package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var dayNumberPattern = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)

// ExtractDate resolves a spoken date reference to the canonical
// "Monday, January 2" form, or "" when nothing matched.
func (x *Extractor) ExtractDate(lower string) string {
	today := x.now().In(x.loc)

	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2).Format(domain.DateFormat)
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(domain.DateFormat)
	case strings.Contains(lower, "today") || strings.Contains(lower, "right now"):
		return today.Format(domain.DateFormat)
	}

	for i, day := range weekdays {
		if strings.Contains(lower, day) {
			ahead := (i - int(today.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7 // a named weekday that is today means next week
			}
			return today.AddDate(0, 0, ahead).Format(domain.DateFormat)
		}
	}

	if strings.Contains(lower, "next week") {
		return today.AddDate(0, 0, 7).Format(domain.DateFormat)
	}

	// Explicit "month day", rolled to next year if already past.
	for i, month := range months {
		if !strings.Contains(lower, month) {
			continue
		}
		m := dayNumberPattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			continue
		}
		date := time.Date(today.Year(), time.Month(i+1), day, 0, 0, 0, 0, x.loc)
		if date.Day() != day {
			continue // e.g. February 30
		}
		if date.Before(today.Truncate(24 * time.Hour)) {
			date = date.AddDate(1, 0, 0)
		}
		return date.Format(domain.DateFormat)
	}

	return ""
}

var (
	clockPattern     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)`)
	oclockPattern    = regexp.MustCompile(`\b(\d{1,2})\s*(?:o'?clock)?\s*(?:in the\s+)?(morning|afternoon|evening)\b`)
	slotTimePattern  = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(AM|PM)`)
)

// ExtractTime resolves a spoken time reference to a slot on the bookable
// grid, snapping parsed times to their nearest grid neighbor.
func (x *Extractor) ExtractTime(lower string) string {
	// Dots from speech recognition ("2 p.m.") confuse nothing once removed.
	cleaned := strings.ReplaceAll(lower, ".", "")

	if strings.Contains(cleaned, "noon") || strings.Contains(cleaned, "midday") {
		return x.SnapToGrid("12:00 PM")
	}
	if strings.Contains(cleaned, "midnight") {
		return x.SnapToGrid("12:00 AM")
	}

	if m := clockPattern.FindStringSubmatch(cleaned); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute < 60 {
			period := "PM"
			if strings.HasPrefix(m[3], "a") {
				period = "AM"
			}
			return x.SnapToGrid(fmt.Sprintf("%d:%02d %s", hour, minute, period))
		}
	}

	if m := oclockPattern.FindStringSubmatch(cleaned); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour >= 1 && hour <= 12 {
			period := "PM"
			if m[2] == "morning" {
				period = "AM"
			}
			return x.SnapToGrid(fmt.Sprintf("%d:00 %s", hour, period))
		}
	}

	// Part-of-day and preference defaults.
	switch {
	case strings.Contains(cleaned, "earliest"), strings.Contains(cleaned, "first available"):
		if len(x.slots) > 0 {
			return x.slots[0]
		}
	case strings.Contains(cleaned, "latest"), strings.Contains(cleaned, "last available"):
		if len(x.slots) > 0 {
			return x.slots[len(x.slots)-1]
		}
	case strings.Contains(cleaned, "morning"):
		for _, slot := range x.slots {
			if strings.HasSuffix(slot, "AM") {
				return slot
			}
		}
	case strings.Contains(cleaned, "afternoon"):
		for _, slot := range x.slots {
			if strings.HasSuffix(slot, "PM") && !strings.HasPrefix(slot, "12") {
				return slot
			}
		}
	}

	return ""
}

// SnapToGrid returns the bookable slot nearest to the given time by
// absolute minute distance. A time already on the grid is returned as-is.
func (x *Extractor) SnapToGrid(timeStr string) string {
	for _, slot := range x.slots {
		if slot == timeStr {
			return slot
		}
	}

	want, ok := MinutesOfDay(timeStr)
	if !ok {
		return ""
	}

	best := ""
	bestDiff := 1 << 30
	for _, slot := range x.slots {
		have, ok := MinutesOfDay(slot)
		if !ok {
			continue
		}
		diff := want - have
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = slot
		}
	}
	return best
}

// MinutesOfDay parses "H:MM AM/PM" into minutes since midnight.
func MinutesOfDay(timeStr string) (int, bool) {
	m := slotTimePattern.FindStringSubmatch(strings.ToUpper(timeStr))
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if m[3] == "PM" && hour != 12 {
		hour += 12
	} else if m[3] == "AM" && hour == 12 {
		hour = 0
	}
	return hour*60 + minute, true
}
