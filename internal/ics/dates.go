package ics

import (
	"strings"
	"time"
)

const (
	layoutDate  = "20060102"
	layoutLocal = "20060102T150405"
	layoutUTC   = "20060102T150405Z"
)

// ParseDateValue parses a DTSTART/DTEND value. Two shapes are accepted:
//
//   - date-only "YYYYMMDD" (usually with VALUE=DATE): midnight in loc,
//     allDay is true
//   - date-time "YYYYMMDDTHHMMSS[Z]": UTC when Z-suffixed, otherwise in the
//     tzid zone when it can be loaded, else in loc
//
// Any other shape reports ok == false. A nil loc means time.Local.
func ParseDateValue(value, tzid string, loc *time.Location) (t time.Time, allDay bool, ok bool) {
	return newDateResolver(loc).parse(value, tzid)
}

// dateResolver parses date values for one Parse or Validate call. Each TZID
// is loaded at most once per resolver.
type dateResolver struct {
	loc   *time.Location
	zones map[string]*time.Location
}

func newDateResolver(loc *time.Location) *dateResolver {
	if loc == nil {
		loc = time.Local
	}
	return &dateResolver{loc: loc, zones: make(map[string]*time.Location)}
}

// zone resolves tzid, caching unknown names as the fallback location.
func (r *dateResolver) zone(tzid string) *time.Location {
	if tzid == "" {
		return r.loc
	}
	if z, ok := r.zones[tzid]; ok {
		return z
	}
	z, err := time.LoadLocation(tzid)
	if err != nil {
		z = r.loc
	}
	r.zones[tzid] = z
	return z
}

func (r *dateResolver) parse(value, tzid string) (time.Time, bool, bool) {
	value = strings.TrimSpace(value)

	switch len(value) {
	case len(layoutDate):
		if d, err := time.ParseInLocation(layoutDate, value, r.loc); err == nil {
			return d, true, true
		}
	case len(layoutUTC):
		if d, err := time.Parse(layoutUTC, value); err == nil {
			return d.UTC(), false, true
		}
	case len(layoutLocal):
		if d, err := time.ParseInLocation(layoutLocal, value, r.zone(tzid)); err == nil {
			return d, false, true
		}
	}
	return time.Time{}, false, false
}

// line applies parse to a DTSTART/DTEND content line.
func (r *dateResolver) line(cl contentLine) (time.Time, bool, bool) {
	return r.parse(cl.Value, cl.param("TZID"))
}
