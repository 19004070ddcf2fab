package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurcal/internal/ics"
	"recurcal/internal/model"
)

func TestDraftTask(t *testing.T) {
	start := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	task := DraftTask(ics.Event{UID: "u", Title: "Dentist", Description: "bring card", Start: start, End: start.Add(time.Hour)})

	assert.Equal(t, "Dentist", task.Title)
	assert.Equal(t, "bring card", task.Description)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, start, *task.DueDate)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Empty(t, task.RecurrenceRule)
}

func TestDraftTimetableEntry(t *testing.T) {
	start := time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC)
	ev := ics.Event{
		UID:         "class-1",
		Title:       "Operating Systems",
		Description: "Course: CS330\nInstructor:   Dr. Kim  \nRoom notes",
		Location:    "E3-1 101",
		Start:       start,
		End:         start.Add(75 * time.Minute),
		IsRecurring: true,
		RawRule:     "FREQ=WEEKLY;INTERVAL=1;BYDAY=TU,TH;UNTIL=20250502T235959Z",
	}

	entry, ok := DraftTimetableEntry(ev)
	require.True(t, ok)
	assert.Equal(t, "Operating Systems", entry.CourseName)
	assert.Equal(t, "CS330", entry.CourseCode)
	assert.Equal(t, "Dr. Kim", entry.Instructor)
	assert.Equal(t, "E3-1 101", entry.Location)
	assert.Equal(t, "09:00", entry.StartTime)
	assert.Equal(t, "10:15", entry.EndTime)
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, entry.DaysOfWeek)
	require.NotNil(t, entry.SemesterStart)
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), *entry.SemesterStart)
	require.NotNil(t, entry.SemesterEnd)
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), *entry.SemesterEnd)
}

func TestDraftTimetableEntry_Fallbacks(t *testing.T) {
	start := time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC) // Wednesday

	entry, ok := DraftTimetableEntry(ics.Event{
		Title:       "Seminar",
		Description: "no structured fields",
		Start:       start,
		End:         start.Add(time.Hour),
		IsRecurring: true,
		RawRule:     "FREQ=WEEKLY;COUNT=10",
	})
	require.True(t, ok)
	assert.Equal(t, "", entry.Instructor)
	assert.Equal(t, "", entry.CourseCode)
	assert.Equal(t, []time.Weekday{time.Wednesday}, entry.DaysOfWeek)
	assert.Nil(t, entry.SemesterEnd)

	_, ok = DraftTimetableEntry(ics.Event{Title: "One-off", Start: start, End: start})
	assert.False(t, ok)
	_, ok = DraftTimetableEntry(ics.Event{Title: "Flag only", IsRecurring: true})
	assert.False(t, ok)
}

func TestMap_ExportImportCycle(t *testing.T) {
	due := time.Date(2025, 1, 20, 17, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: "hw", Title: "Homework 1", DueDate: &due, Priority: model.PriorityHigh}}
	semStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	semEnd := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	entries := []model.TimetableEntry{{
		CourseName:    "Compilers",
		CourseCode:    "CS420",
		Instructor:    "Prof. Lee",
		Location:      "N1 102",
		StartTime:     "13:00",
		EndTime:       "14:15",
		DaysOfWeek:    []time.Weekday{time.Monday, time.Wednesday},
		SemesterStart: &semStart,
		SemesterEnd:   &semEnd,
	}}

	doc := ics.NewEncoder(ics.EncoderOptions{Timezone: "UTC"}).Encode(tasks, entries)
	parsed := ics.NewParser(time.UTC).Parse(doc)
	require.Len(t, parsed.Events, 2)

	res := Map(parsed.Events)
	require.Len(t, res.Tasks, 2)
	require.Len(t, res.Entries, 1)

	assert.Equal(t, "Homework 1", res.Tasks[0].Title)
	assert.True(t, due.Equal(*res.Tasks[0].DueDate))
	assert.Equal(t, model.PriorityMedium, res.Tasks[0].Priority, "import does not carry priority")

	got := res.Entries[0]
	assert.Equal(t, entries[0].CourseName, got.CourseName)
	assert.Equal(t, entries[0].CourseCode, got.CourseCode)
	assert.Equal(t, entries[0].Instructor, got.Instructor)
	assert.Equal(t, entries[0].Location, got.Location)
	assert.Equal(t, entries[0].StartTime, got.StartTime)
	assert.Equal(t, entries[0].EndTime, got.EndTime)
	assert.Equal(t, entries[0].DaysOfWeek, got.DaysOfWeek)
	assert.True(t, semStart.Equal(*got.SemesterStart))
	assert.True(t, semEnd.Equal(*got.SemesterEnd))
}
