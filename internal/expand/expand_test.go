package expand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func master(due time.Time, rule string) model.Task {
	return model.Task{
		ID:             "task-1",
		Title:          "Lab report",
		Priority:       model.PriorityHigh,
		Status:         model.StatusPending,
		DueDate:        &due,
		RecurrenceRule: rule,
	}
}

func dues(items []model.Item) []time.Time {
	out := make([]time.Time, 0, len(items))
	for _, it := range items {
		out = append(out, it.Due())
	}
	return out
}

func TestExpand_WeeklyCountAcrossWindow(t *testing.T) {
	due := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	rule, ok := recurrence.Encode(recurrence.Config{
		Frequency:  recurrence.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
		End:        recurrence.AfterCount(4),
	}, due)
	require.True(t, ok)
	require.Equal(t, "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE;COUNT=4", rule)

	m := master(due, rule)
	items := Expand(m, date(2025, 1, 1), date(2025, 1, 31), 100)

	require.Len(t, items, 4)
	assert.Equal(t, []time.Time{
		due,
		time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
	}, dues(items))

	// The anchor occurrence is the master record itself.
	first, isTask := items[0].(model.Task)
	require.True(t, isTask)
	assert.Equal(t, "task-1", first.Key())

	for _, it := range items[1:] {
		inst, isInst := it.(model.Instance)
		require.True(t, isInst)
		assert.Equal(t, "task-1", inst.MasterID)
		assert.Equal(t, due, inst.OriginalDueDate)
		assert.Equal(t, model.InstanceKey("task-1", inst.Due()), inst.Key())
		assert.Equal(t, "Lab report", inst.Title)
	}
	assert.Equal(t, due, *m.DueDate)
}

func TestExpand_CountBoundsWholeRule(t *testing.T) {
	due := date(2025, 1, 1)
	m := master(due, "FREQ=DAILY;INTERVAL=1;COUNT=5")

	assert.Len(t, Expand(m, date(2024, 1, 1), date(2026, 1, 1), 1000), 5)
	// A later window only sees the tail of the same five occurrences.
	assert.Equal(t, []time.Time{date(2025, 1, 4), date(2025, 1, 5)}, dues(Expand(m, date(2025, 1, 4), date(2025, 3, 1), 1000)))
}

func TestExpand_WindowContainment(t *testing.T) {
	due := time.Date(2025, 3, 3, 18, 30, 0, 0, time.UTC)
	m := master(due, "FREQ=DAILY;INTERVAL=2")
	start, end := date(2025, 3, 10), date(2025, 3, 20)

	items := Expand(m, start, end, 0)
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.False(t, it.Due().Before(StartOfDay(start)))
		assert.False(t, it.Due().After(EndOfDay(end)))
		assert.False(t, it.Due().Before(due))
	}
	// Window end is inclusive of the whole day.
	assert.Equal(t, time.Date(2025, 3, 19, 18, 30, 0, 0, time.UTC), items[len(items)-1].Due())
}

func TestExpand_IdentityStable(t *testing.T) {
	m := master(date(2025, 2, 3), "FREQ=WEEKLY;BYDAY=MO,TH")
	a := Expand(m, date(2025, 2, 1), date(2025, 3, 1), 0)
	b := Expand(m, date(2025, 2, 1), date(2025, 3, 1), 0)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Key(), b[i].Key())
	}
}

func TestExpand_NonRecurring(t *testing.T) {
	due := time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)
	m := master(due, "")

	items := Expand(m, date(2025, 1, 1), date(2025, 1, 31), 0)
	require.Len(t, items, 1)
	assert.Equal(t, m, items[0])

	assert.Empty(t, Expand(m, date(2025, 2, 1), date(2025, 2, 28), 0))

	m.DueDate = nil
	assert.Empty(t, Expand(m, date(2025, 1, 1), date(2025, 12, 31), 0))
}

func TestExpand_BadRuleActsNonRecurring(t *testing.T) {
	due := date(2025, 1, 10)
	m := master(due, "FREQ=FORTNIGHTLY")

	items := Expand(m, date(2025, 1, 1), date(2025, 12, 31), 0)
	require.Len(t, items, 1)
	_, isTask := items[0].(model.Task)
	assert.True(t, isTask)
}

func TestExpand_InvalidWindow(t *testing.T) {
	m := master(date(2025, 1, 1), "FREQ=DAILY")
	items := Expand(m, date(2025, 2, 1), date(2025, 1, 1), 0)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestExpand_ScanCap(t *testing.T) {
	m := master(date(2025, 1, 1), "FREQ=DAILY")

	// Candidates before the window count toward the cap.
	assert.Empty(t, Expand(m, date(2025, 3, 1), date(2025, 3, 31), 10))
	assert.Len(t, Expand(m, date(2025, 1, 1), date(2025, 12, 31), 10), 10)
}

func TestExpand_MasterBeforeWindow(t *testing.T) {
	m := master(date(2025, 1, 6), "FREQ=WEEKLY;INTERVAL=1")
	items := Expand(m, date(2025, 1, 10), date(2025, 1, 31), 0)

	assert.Equal(t, []time.Time{date(2025, 1, 13), date(2025, 1, 20), date(2025, 1, 27)}, dues(items))
	for _, it := range items {
		_, isInst := it.(model.Instance)
		assert.True(t, isInst)
	}
}

func TestExpander_WithCacheAndExpandAll(t *testing.T) {
	cache := recurrence.NewCache(4)
	e := New(cache, 50)

	weekly := master(date(2025, 1, 6), "FREQ=WEEKLY;BYDAY=MO")
	daily := master(date(2025, 1, 7), "FREQ=DAILY;COUNT=2")
	daily.ID = "task-2"

	items := e.ExpandAll([]model.Task{weekly, daily}, date(2025, 1, 1), date(2025, 1, 13), 0)
	assert.Equal(t, []time.Time{date(2025, 1, 6), date(2025, 1, 7), date(2025, 1, 8), date(2025, 1, 13)}, dues(items))
	assert.Equal(t, 2, cache.Len())
}
