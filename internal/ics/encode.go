package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

const (
	defaultProductID  = "-//recurcal//Schedule Export//EN"
	defaultCalName    = "My Schedule"
	defaultUIDDomain  = "recurcal.local"
	defaultClassStart = "09:00"
	defaultClassEnd   = "10:00"

	// firstClassScanDays bounds the search for the first class day.
	firstClassScanDays = 7
)

var priorityCodes = map[model.Priority]int{
	model.PriorityHigh:   1,
	model.PriorityMedium: 5,
	model.PriorityLow:    9,
}

// EncoderOptions configures the document envelope and timetable defaults.
type EncoderOptions struct {
	ProductID    string
	CalendarName string
	// Timezone is the IANA name written to X-WR-TIMEZONE and used as TZID for
	// timetable events.
	Timezone  string
	UIDDomain string
	// DefaultStart and DefaultEnd ("HH:MM") apply to entries without times.
	DefaultStart string
	DefaultEnd   string
	// Now supplies the generation time. Nil means time.Now.
	Now func() time.Time
}

// Encoder writes tasks and timetable entries as one calendar document.
type Encoder struct {
	opts EncoderOptions
	loc  *time.Location
}

// NewEncoder creates an Encoder, filling unset options with defaults. An
// unknown Timezone falls back to UTC.
func NewEncoder(opts EncoderOptions) *Encoder {
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	if opts.CalendarName == "" {
		opts.CalendarName = defaultCalName
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = defaultUIDDomain
	}
	if opts.DefaultStart == "" {
		opts.DefaultStart = defaultClassStart
	}
	if opts.DefaultEnd == "" {
		opts.DefaultEnd = defaultClassEnd
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	loc := time.UTC
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	} else if l, err := time.LoadLocation(opts.Timezone); err == nil {
		loc = l
	} else {
		appLog.Error("ics: unknown timezone, using UTC", err, "timezone", opts.Timezone)
		opts.Timezone = "UTC"
	}

	return &Encoder{opts: opts, loc: loc}
}

// Encode serializes tasks (those with a due date) followed by timetable
// entries (those with semester bounds and a matching class day) into a
// CRLF-terminated document. Skipped inputs are logged, never fatal.
func (e *Encoder) Encode(tasks []model.Task, entries []model.TimetableEntry) string {
	now := e.opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetProductId(e.opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(e.opts.CalendarName)
	cal.SetXWRTimezone(e.opts.Timezone)

	uids := newUIDSet(e.opts.UIDDomain)

	for _, t := range tasks {
		if t.DueDate == nil {
			appLog.Debug("ics: skipping task without due date", "task", t.ID)
			continue
		}
		e.addTask(cal, uids.claim("task-"+t.ID), t, now)
	}

	// Timetable events carry TZID, so the zone is described once up front.
	var firstYear, lastYear int
	for i, entry := range entries {
		if !e.addTimetableEntry(cal, uids, i, entry, now) {
			continue
		}
		from, to := entry.SemesterStart.Year(), entry.SemesterEnd.Year()
		if firstYear == 0 || from < firstYear {
			firstYear = from
		}
		if to > lastYear {
			lastYear = to
		}
	}
	if firstYear != 0 && e.loc != time.UTC {
		tz := newTimezone(e.opts.Timezone, e.loc, firstYear, lastYear)
		cal.Components = append([]ical.Component{tz}, cal.Components...)
	}

	return cal.Serialize(ical.WithNewLineWindows)
}

func (e *Encoder) addTask(cal *ical.Calendar, uid string, t model.Task, now time.Time) {
	due := *t.DueDate

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(now)
	ev.SetStartAt(due)
	ev.SetEndAt(due)
	ev.SetSummary(t.Title)
	if t.Description != "" {
		ev.SetDescription(t.Description)
	}
	if t.Type != "" {
		ev.SetProperty(ical.ComponentPropertyCategories, t.Type)
	}
	if code, ok := priorityCodes[t.Priority]; ok {
		ev.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(code))
	}
	if t.Status != "" {
		ev.SetProperty(ical.ComponentPropertyStatus, strings.ToUpper(string(t.Status)))
	}
}

// addTimetableEntry reports whether an event was written for entry.
func (e *Encoder) addTimetableEntry(cal *ical.Calendar, uids *uidSet, index int, entry model.TimetableEntry, now time.Time) bool {
	if entry.SemesterStart == nil || entry.SemesterEnd == nil {
		appLog.Debug("ics: skipping timetable entry without semester bounds", "course", entry.CourseName)
		return false
	}

	day, ok := firstClassDay(*entry.SemesterStart, entry.DaysOfWeek, e.loc)
	if !ok {
		appLog.Warn("ics: skipping timetable entry with no class day", "course", entry.CourseName, "days", entry.DaysOfWeek)
		return false
	}

	sh, sm := parseClock(entry.StartTime, e.opts.DefaultStart, 9, 0)
	eh, em := parseClock(entry.EndTime, e.opts.DefaultEnd, 10, 0)
	start := time.Date(day.Year(), day.Month(), day.Day(), sh, sm, 0, 0, e.loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, e.loc)

	rule, _ := recurrence.Encode(recurrence.Config{
		Frequency:  recurrence.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: entry.DaysOfWeek,
		End:        recurrence.UntilDate(*entry.SemesterEnd),
	}, start)

	ev := cal.AddEvent(uids.claim("class-" + timetableKey(e.opts.UIDDomain, index, entry)))
	ev.SetDtStampTime(now)
	e.setLocalTime(ev, ical.ComponentPropertyDtStart, start)
	e.setLocalTime(ev, ical.ComponentPropertyDtEnd, end)
	ev.SetSummary(entry.CourseName)
	if desc := timetableDescription(entry); desc != "" {
		ev.SetDescription(desc)
	}
	if entry.Location != "" {
		ev.SetLocation(entry.Location)
	}
	ev.SetProperty(ical.ComponentPropertyCategories, "CLASS")
	if entry.Color != "" {
		ev.SetProperty(ical.ComponentProperty("COLOR"), entry.Color)
	}
	ev.AddRrule(rule)
	return true
}

// setLocalTime writes t with a TZID parameter, or in UTC form when the
// encoder zone is UTC.
func (e *Encoder) setLocalTime(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	if e.loc == time.UTC {
		ev.SetProperty(prop, t.UTC().Format(layoutUTC))
		return
	}
	ev.SetProperty(prop, t.Format(layoutLocal), ical.WithTZID(e.opts.Timezone))
}

// firstClassDay scans forward from the semester start, at most a week, for
// the first day in days.
func firstClassDay(semesterStart time.Time, days []time.Weekday, loc *time.Location) (time.Time, bool) {
	want := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		want[d] = true
	}
	y, m, d := semesterStart.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for i := 0; i < firstClassScanDays; i++ {
		if want[day.Weekday()] {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// parseClock reads "HH:MM" or "HH:MM:SS", falling back to def and then to
// the hard default hour/minute.
func parseClock(v, def string, hardH, hardM int) (int, int) {
	for _, s := range []string{v, def} {
		if s == "" {
			continue
		}
		for _, layout := range []string{"15:04", "15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t.Hour(), t.Minute()
			}
		}
	}
	return hardH, hardM
}

func timetableDescription(entry model.TimetableEntry) string {
	var lines []string
	if entry.CourseCode != "" {
		lines = append(lines, "Course: "+entry.CourseCode)
	}
	if entry.Instructor != "" {
		lines = append(lines, "Instructor: "+entry.Instructor)
	}
	return strings.Join(lines, "\n")
}

// timetableKey derives a stable name-based UUID for an entry, so re-exports
// of the same timetable keep their UIDs.
func timetableKey(domain string, index int, entry model.TimetableEntry) string {
	name := fmt.Sprintf("%s/%d/%s/%s/%s", domain, index, entry.CourseCode, entry.CourseName, recurrence.FormatByDay(entry.DaysOfWeek))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// uidSet hands out UIDs unique within one document.
type uidSet struct {
	domain string
	seen   map[string]bool
}

func newUIDSet(domain string) *uidSet {
	return &uidSet{domain: domain, seen: make(map[string]bool)}
}

// claim returns base@domain, or base-N@domain when base was already taken.
func (u *uidSet) claim(base string) string {
	uid := base
	for n := 2; u.seen[uid]; n++ {
		uid = base + "-" + strconv.Itoa(n)
	}
	u.seen[uid] = true
	return uid + "@" + u.domain
}
