package recurrence

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

type weekdayEntry struct {
	day  time.Weekday
	code string
	rule rrule.Weekday
}

// weekdays is the only place weekday numbering is translated. Order is the
// canonical emission order (Monday first).
var weekdays = []weekdayEntry{
	{time.Monday, "MO", rrule.MO},
	{time.Tuesday, "TU", rrule.TU},
	{time.Wednesday, "WE", rrule.WE},
	{time.Thursday, "TH", rrule.TH},
	{time.Friday, "FR", rrule.FR},
	{time.Saturday, "SA", rrule.SA},
	{time.Sunday, "SU", rrule.SU},
}

// DayCode returns the two-letter rule code for d ("MO" ... "SU").
func DayCode(d time.Weekday) string {
	for _, w := range weekdays {
		if w.day == d {
			return w.code
		}
	}
	return ""
}

// ParseDayCode is the inverse of DayCode. It accepts lower case and ignores
// an ordinal prefix such as "1MO" or "-1FR".
func ParseDayCode(code string) (time.Weekday, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) > 2 {
		code = code[len(code)-2:]
	}
	for _, w := range weekdays {
		if w.code == code {
			return w.day, true
		}
	}
	return 0, false
}

// RuleWeekday converts d to the rrule-go weekday constant.
func RuleWeekday(d time.Weekday) rrule.Weekday {
	for _, w := range weekdays {
		if w.day == d {
			return w.rule
		}
	}
	return rrule.MO
}

// SortDays de-duplicates days and orders them Monday first.
func SortDays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	present := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		present[d] = true
	}
	out := make([]time.Weekday, 0, len(present))
	for _, w := range weekdays {
		if present[w.day] {
			out = append(out, w.day)
		}
	}
	return out
}

// FormatByDay renders days as a BYDAY value, e.g. "MO,WE".
func FormatByDay(days []time.Weekday) string {
	sorted := SortDays(days)
	codes := make([]string, 0, len(sorted))
	for _, d := range sorted {
		codes = append(codes, DayCode(d))
	}
	return strings.Join(codes, ",")
}

// ParseByDayValue parses a BYDAY CSV value. Unknown codes are skipped.
func ParseByDayValue(value string) []time.Weekday {
	var days []time.Weekday
	for _, part := range strings.Split(value, ",") {
		if d, ok := ParseDayCode(part); ok {
			days = append(days, d)
		}
	}
	return SortDays(days)
}

// ParseByDay extracts the BYDAY weekday set out of raw rule text. It returns
// nil when the rule has no BYDAY parameter.
func ParseByDay(rule string) []time.Weekday {
	for _, param := range splitRule(rule) {
		if param.key == "BYDAY" {
			return ParseByDayValue(param.value)
		}
	}
	return nil
}
