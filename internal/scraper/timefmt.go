package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNumbers = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

func monthFromName(name string) (time.Month, bool) {
	m, ok := monthNumbers[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

var clockPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2})[:.](\d{2})\s*(am|pm)?\s*$`)

// ConvertTo24Hour turns "9:05pm", "12:15 am" or "13:30" into "HH:MM".
func ConvertTo24Hour(s string) (string, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return to24Hour(m[1], m[2], m[3])
}

// to24Hour applies the am/pm rule: 12am is 00, 12pm stays 12, other pm hours
// gain 12. Without a suffix the hour is taken as 24-hour already.
func to24Hour(hourText, minuteText, suffix string) (string, bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute > 59 {
		return "", false
	}

	switch strings.ToLower(suffix) {
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// rangeStartSuffix infers am/pm for the start of "1:30 - 3:00pm" from the
// end's suffix. A start hour past the end hour crosses noon or midnight, so
// it takes the other half of the day ("11:30 - 1:00pm" starts in the am).
func rangeStartSuffix(startHour, endHour, endSuffix string) string {
	start, err1 := strconv.Atoi(startHour)
	end, err2 := strconv.Atoi(endHour)
	if err1 != nil || err2 != nil {
		return endSuffix
	}
	if start%12 > end%12 {
		if strings.EqualFold(endSuffix, "pm") {
			return "am"
		}
		return "pm"
	}
	return endSuffix
}
