package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// zoneTransition is one UTC offset change of a location.
type zoneTransition struct {
	at       time.Time
	from, to int // offsets in seconds east of UTC
	name     string
	dst      bool
}

// newTimezone describes loc as a VTIMEZONE named tzid for the years
// fromYear..toYear: the observance in effect on January 1st of fromYear,
// followed by one STANDARD or DAYLIGHT observance per offset change.
func newTimezone(tzid string, loc *time.Location, fromYear, toYear int) *ical.VTimezone {
	tz := ical.NewTimezone(tzid)

	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, loc)
	name, off := start.Zone()
	addObservance(tz, zoneTransition{
		at:   time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		from: off, to: off, name: name, dst: start.IsDST(),
	})

	for _, tr := range zoneTransitions(loc, fromYear, toYear) {
		addObservance(tz, tr)
	}
	return tz
}

func addObservance(tz *ical.VTimezone, tr zoneTransition) {
	// DTSTART is the local time in the offset before the change.
	dtstart := tr.at.In(time.FixedZone("", tr.from)).Format(layoutLocal)
	if tr.from == tr.to {
		dtstart = tr.at.Format(layoutLocal)
	}

	var base *ical.ComponentBase
	if tr.dst {
		d := &ical.Daylight{}
		tz.Components = append(tz.Components, d)
		base = &d.ComponentBase
	} else {
		s := ical.NewStandard()
		tz.Components = append(tz.Components, s)
		base = &s.ComponentBase
	}
	base.SetProperty(ical.ComponentPropertyDtStart, dtstart)
	base.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), formatOffset(tr.from))
	base.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), formatOffset(tr.to))
	if tr.name != "" {
		base.SetProperty(ical.ComponentProperty(ical.PropertyTzname), tr.name)
	}
}

// zoneTransitions finds the offset changes of loc between January 1st of
// fromYear and the end of toYear, to the minute.
func zoneTransitions(loc *time.Location, fromYear, toYear int) []zoneTransition {
	var out []zoneTransition

	t := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, loc)
	end := time.Date(toYear+1, time.January, 1, 0, 0, 0, 0, loc)
	_, off := t.Zone()

	for t.Before(end) {
		next := t.Add(24 * time.Hour)
		if _, nextOff := next.Zone(); nextOff != off {
			lo, hi := t, next
			for hi.Sub(lo) > time.Minute {
				mid := lo.Add(hi.Sub(lo) / 2)
				if _, midOff := mid.Zone(); midOff == off {
					lo = mid
				} else {
					hi = mid
				}
			}
			at := hi.Truncate(time.Minute)
			name, to := hi.Zone()
			out = append(out, zoneTransition{at: at, from: off, to: to, name: name, dst: hi.IsDST()})
			off = to
		}
		t = next
	}
	return out
}

// formatOffset renders seconds east of UTC as "+HHMM" / "-HHMM".
func formatOffset(sec int) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	return fmt.Sprintf("%c%02d%02d", sign, sec/3600, (sec%3600)/60)
}
