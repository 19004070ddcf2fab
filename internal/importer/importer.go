// Package importer maps parsed calendar events onto draft tasks and timetable
// entries. The mapping is intentionally lossy: drafts are meant for manual
// reconciliation, and nothing here persists them.
package importer

import (
	"regexp"
	"strings"
	"time"

	"recurcal/internal/ics"
	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

var (
	instructorRe = regexp.MustCompile(`(?i)instructor:[ \t]*([^\r\n]+)`)
	courseRe     = regexp.MustCompile(`(?i)course:[ \t]*([^\r\n]+)`)
)

// Result holds the drafts produced from one parsed document.
type Result struct {
	Tasks   []model.Task
	Entries []model.TimetableEntry
}

// Map turns every event into a draft task and every recurring event into an
// additional draft timetable entry. Input order is preserved.
func Map(events []ics.Event) Result {
	res := Result{
		Tasks:   make([]model.Task, 0, len(events)),
		Entries: make([]model.TimetableEntry, 0),
	}
	for _, ev := range events {
		res.Tasks = append(res.Tasks, DraftTask(ev))
		if entry, ok := DraftTimetableEntry(ev); ok {
			res.Entries = append(res.Entries, entry)
		}
	}
	appLog.Info("import mapped events", "events", len(events), "tasks", len(res.Tasks), "timetable_entries", len(res.Entries))
	return res
}

// DraftTask maps ev to a pending, medium-priority task due at ev.Start.
func DraftTask(ev ics.Event) model.Task {
	due := ev.Start
	return model.Task{
		Title:       ev.Title,
		Description: ev.Description,
		DueDate:     &due,
		Priority:    model.PriorityMedium,
		Status:      model.StatusPending,
	}
}

// DraftTimetableEntry maps a recurring event to a timetable entry. ok is
// false for events without a rule.
//
// Days come from the rule's BYDAY; a rule without BYDAY repeats on the
// start's weekday. The semester ends on the rule's UNTIL date when there is
// one, and is left unset otherwise.
func DraftTimetableEntry(ev ics.Event) (model.TimetableEntry, bool) {
	if !ev.IsRecurring || ev.RawRule == "" {
		return model.TimetableEntry{}, false
	}

	days := recurrence.ParseByDay(ev.RawRule)
	if len(days) == 0 {
		days = []time.Weekday{ev.Start.Weekday()}
	}

	y, m, d := ev.Start.Date()
	semesterStart := time.Date(y, m, d, 0, 0, 0, 0, ev.Start.Location())

	entry := model.TimetableEntry{
		CourseName:    ev.Title,
		CourseCode:    firstMatch(courseRe, ev.Description),
		Instructor:    firstMatch(instructorRe, ev.Description),
		Location:      ev.Location,
		StartTime:     ev.Start.Format("15:04"),
		EndTime:       ev.End.In(ev.Start.Location()).Format("15:04"),
		DaysOfWeek:    days,
		SemesterStart: &semesterStart,
	}

	if cfg := recurrence.Decode(ev.RawRule); cfg.End.Kind == recurrence.EndUntil {
		until := cfg.End.Until
		entry.SemesterEnd = &until
	}

	return entry, true
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
