package ics

import (
	"time"

	appLog "recurcal/internal/log"
)

// Event is the normalized representation of a VEVENT as produced by the
// parser. It carries only what the import mapper consumes.
type Event struct {
	UID         string
	Title       string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	IsRecurring bool
	// RawRule is the RRULE value verbatim, without the "RRULE:" prefix.
	RawRule string
}

// Dropped describes an event block that was discarded.
type Dropped struct {
	// Index is the 0-based position of the block among all VEVENT blocks.
	Index int
	UID   string
	// Missing lists the required properties that were absent or unparseable,
	// or "END:VEVENT" for an unterminated block.
	Missing []string
}

// ParseResult is the outcome of parsing one document.
type ParseResult struct {
	Events []Event
	// Success is false only when the input does not look like a calendar
	// document at all (no BEGIN:VCALENDAR line).
	Success bool
	Dropped []Dropped
}

// Parser is a line-oriented VEVENT reader. It never fails: malformed blocks
// are dropped individually and reported in ParseResult.Dropped.
type Parser struct {
	// Location is used for date-only values and floating date-times.
	// Nil means time.Local.
	Location *time.Location
}

// NewParser creates a Parser resolving floating times in loc.
func NewParser(loc *time.Location) *Parser {
	return &Parser{Location: loc}
}

// Parse parses doc with a Parser in time.Local.
func Parse(doc string) ParseResult {
	return NewParser(nil).Parse(doc)
}

type parseState int

const (
	stateNone parseState = iota
	stateInEvent
)

// eventBuilder accumulates properties of the current VEVENT block.
type eventBuilder struct {
	ev         Event
	hasUID     bool
	hasSummary bool
	hasStart   bool
	hasEnd     bool
}

func (b *eventBuilder) missing() []string {
	var m []string
	if !b.hasUID {
		m = append(m, "UID")
	}
	if !b.hasSummary {
		m = append(m, "SUMMARY")
	}
	if !b.hasStart {
		m = append(m, "DTSTART")
	}
	if !b.hasEnd {
		m = append(m, "DTEND")
	}
	return m
}

type propertyHandler func(b *eventBuilder, cl contentLine, dates *dateResolver)

// eventProperties is the dispatch table for lines inside a VEVENT. Anything
// not listed is ignored.
var eventProperties = map[string]propertyHandler{
	"UID": func(b *eventBuilder, cl contentLine, _ *dateResolver) {
		b.ev.UID = cl.Value
		b.hasUID = cl.Value != ""
	},
	"SUMMARY": func(b *eventBuilder, cl contentLine, _ *dateResolver) {
		b.ev.Title = unescapeText(cl.Value)
		b.hasSummary = true
	},
	"DESCRIPTION": func(b *eventBuilder, cl contentLine, _ *dateResolver) {
		b.ev.Description = unescapeText(cl.Value)
	},
	"LOCATION": func(b *eventBuilder, cl contentLine, _ *dateResolver) {
		b.ev.Location = unescapeText(cl.Value)
	},
	"DTSTART": func(b *eventBuilder, cl contentLine, dates *dateResolver) {
		t, allDay, ok := dates.line(cl)
		b.ev.Start, b.ev.AllDay, b.hasStart = t, allDay, ok
	},
	"DTEND": func(b *eventBuilder, cl contentLine, dates *dateResolver) {
		t, _, ok := dates.line(cl)
		b.ev.End, b.hasEnd = t, ok
	},
	"RRULE": func(b *eventBuilder, cl contentLine, _ *dateResolver) {
		b.ev.RawRule = cl.Value
		b.ev.IsRecurring = cl.Value != ""
	},
}

// Parse reads every VEVENT block in doc. Blocks lacking UID, SUMMARY, a
// parseable DTSTART or a parseable DTEND are dropped. Components nested in
// an event (VALARM) are skipped. VTIMEZONE and other top-level components
// are ignored.
func (p *Parser) Parse(doc string) ParseResult {
	dates := newDateResolver(p.Location)

	res := ParseResult{Events: make([]Event, 0)}
	state := stateNone
	var (
		cur   *eventBuilder
		depth int // nesting below the current VEVENT
		index int
	)

	drop := func(missing []string) {
		res.Dropped = append(res.Dropped, Dropped{Index: index, UID: cur.ev.UID, Missing: missing})
		appLog.Warn("ics: dropping incomplete event", "index", index, "uid", cur.ev.UID, "missing", missing)
	}

	for _, line := range unfoldLines(doc) {
		cl, ok := parseContentLine(line)
		if !ok {
			continue
		}

		switch state {
		case stateNone:
			switch {
			case cl.Name == "BEGIN" && upper(cl.Value) == "VCALENDAR":
				res.Success = true
			case cl.Name == "BEGIN" && upper(cl.Value) == "VEVENT":
				cur = &eventBuilder{}
				depth = 0
				state = stateInEvent
			}

		case stateInEvent:
			switch {
			case cl.Name == "BEGIN" && upper(cl.Value) == "VEVENT" && depth == 0:
				// A new block before END:VEVENT; the open one is unterminated.
				drop([]string{"END:VEVENT"})
				index++
				cur = &eventBuilder{}
			case cl.Name == "BEGIN":
				depth++
			case cl.Name == "END" && depth > 0:
				depth--
			case cl.Name == "END" && upper(cl.Value) == "VEVENT":
				if missing := cur.missing(); len(missing) > 0 {
					drop(missing)
				} else {
					res.Events = append(res.Events, cur.ev)
				}
				index++
				cur = nil
				state = stateNone
			case cl.Name == "END" && upper(cl.Value) == "VCALENDAR":
				drop([]string{"END:VEVENT"})
				index++
				cur = nil
				state = stateNone
			case depth == 0:
				if h, ok := eventProperties[cl.Name]; ok {
					h(cur, cl, dates)
				}
			}
		}
	}

	if state == stateInEvent {
		drop([]string{"END:VEVENT"})
	}

	appLog.Debug("ics parse completed", "event_count", len(res.Events), "dropped", len(res.Dropped), "success", res.Success)
	return res
}
