package ics

import (
	"fmt"
)

// ValidationResult is the outcome of a structural document check.
type ValidationResult struct {
	IsValid bool
	Errors  []string
	// Warnings is reserved; nothing produces warnings yet.
	Warnings []string
	// EventCount is the number of VEVENT blocks seen.
	EventCount int
}

// Validate checks the structure of doc without parsing events:
//
//   - exactly one top-level BEGIN:VCALENDAR / END:VCALENDAR pair
//   - every VEVENT has UID, DTSTART and SUMMARY before its END:VEVENT
//   - every DTSTART / DTEND value has a shape ParseDateValue accepts
//
// DTEND is not required here, so a valid document can still lose events in
// Parse.
func Validate(doc string) ValidationResult {
	res := ValidationResult{Errors: make([]string, 0), Warnings: make([]string, 0)}
	addErr := func(format string, args ...any) {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	var (
		calBegins, calEnds int
		inCal, inEvent     bool
		depth              int
		seen               map[string]bool
	)
	dates := newDateResolver(nil)

	closeEvent := func() {
		for _, prop := range []string{"UID", "DTSTART", "SUMMARY"} {
			if !seen[prop] {
				addErr("event %d: missing %s", res.EventCount, prop)
			}
		}
		inEvent = false
	}

	for n, line := range unfoldLines(doc) {
		cl, ok := parseContentLine(line)
		if !ok {
			continue
		}
		value := upper(cl.Value)

		switch {
		case inEvent && cl.Name == "BEGIN" && value != "VEVENT":
			depth++
		case inEvent && cl.Name == "END" && depth > 0:
			depth--
		case inEvent && depth > 0:
			// Nested component property.

		case cl.Name == "BEGIN" && value == "VCALENDAR":
			calBegins++
			if inCal {
				addErr("line %d: nested BEGIN:VCALENDAR", n+1)
			}
			inCal = true
		case cl.Name == "END" && value == "VCALENDAR":
			calEnds++
			if inEvent {
				addErr("event %d: missing END:VEVENT", res.EventCount)
				closeEvent()
			}
			if !inCal {
				addErr("line %d: END:VCALENDAR without BEGIN", n+1)
			}
			inCal = false

		case cl.Name == "BEGIN" && value == "VEVENT":
			if inEvent {
				addErr("event %d: missing END:VEVENT", res.EventCount)
				closeEvent()
			}
			if !inCal {
				addErr("line %d: VEVENT outside VCALENDAR", n+1)
			}
			res.EventCount++
			inEvent = true
			depth = 0
			seen = make(map[string]bool)
		case cl.Name == "END" && value == "VEVENT":
			if !inEvent {
				addErr("line %d: END:VEVENT without BEGIN", n+1)
				continue
			}
			closeEvent()

		case inEvent:
			seen[cl.Name] = true
			if cl.Name == "DTSTART" || cl.Name == "DTEND" {
				if _, _, ok := dates.line(cl); !ok {
					addErr("event %d: invalid %s value %q", res.EventCount, cl.Name, cl.Value)
				}
			}
		}
	}

	if inEvent {
		addErr("event %d: missing END:VEVENT", res.EventCount)
		closeEvent()
	}
	switch {
	case calBegins == 0:
		addErr("missing BEGIN:VCALENDAR")
	case calBegins > 1:
		addErr("expected one VCALENDAR, found %d", calBegins)
	}
	if calEnds == 0 && calBegins > 0 {
		addErr("missing END:VCALENDAR")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
