package model

import (
	"strconv"
	"time"
)

// Priority is the task priority as stored by task storage.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the task lifecycle state as stored by task storage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Task is the read-only task record owned by task storage. A Task with a
// non-empty RecurrenceRule and a DueDate is a master task: DueDate anchors
// the recurrence.
type Task struct {
	ID             string     `yaml:"id" json:"id"`
	Title          string     `yaml:"title" json:"title"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty"`
	DueDate        *time.Time `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	Priority       Priority   `yaml:"priority" json:"priority"`
	Status         Status     `yaml:"status" json:"status"`
	Type           string     `yaml:"type,omitempty" json:"type,omitempty"`
	RecurrenceRule string     `yaml:"recurrence_rule,omitempty" json:"recurrence_rule,omitempty"`
}

// IsRecurring reports whether t is a master task.
func (t Task) IsRecurring() bool {
	return t.RecurrenceRule != "" && t.DueDate != nil
}

// TimetableEntry is a weekly class slot bounded by a semester.
//
// StartTime and EndTime are "HH:MM" wall-clock values. DaysOfWeek uses Go's
// time.Weekday numbering; conversion to rule day codes goes through the
// recurrence package table only.
type TimetableEntry struct {
	CourseName    string         `yaml:"course_name" json:"course_name"`
	CourseCode    string         `yaml:"course_code,omitempty" json:"course_code,omitempty"`
	Instructor    string         `yaml:"instructor,omitempty" json:"instructor,omitempty"`
	Location      string         `yaml:"location,omitempty" json:"location,omitempty"`
	StartTime     string         `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime       string         `yaml:"end_time,omitempty" json:"end_time,omitempty"`
	DaysOfWeek    []time.Weekday `yaml:"days_of_week,omitempty" json:"days_of_week"`
	SemesterStart *time.Time     `yaml:"semester_start,omitempty" json:"semester_start,omitempty"`
	SemesterEnd   *time.Time     `yaml:"semester_end,omitempty" json:"semester_end,omitempty"`
	Color         string         `yaml:"color,omitempty" json:"color,omitempty"`
}

// Item is either a Task (the master itself, or a non-recurring task) or an
// Instance synthesized from a master. Callers switch on the concrete type.
type Item interface {
	// Key is the identity of the item: the storage id for a Task, the
	// virtual key for an Instance.
	Key() string
	// Due is the item's due date.
	Due() time.Time
	item()
}

func (t Task) Key() string { return t.ID }

func (t Task) Due() time.Time {
	if t.DueDate == nil {
		return time.Time{}
	}
	return *t.DueDate
}

func (Task) item() {}

// Instance is a derived, never persisted, view of a master task at one
// occurrence. Fields of the embedded Task are a shallow copy taken at
// expansion time, except that ID holds the virtual key and DueDate points at
// the occurrence. The storage id is MasterID.
type Instance struct {
	Task

	// MasterID references the master task. Lookup only.
	MasterID string
	// OriginalDueDate is the master's due date at expansion time.
	OriginalDueDate time.Time
}

// InstanceKey builds the virtual identity "{masterId}_{occurrenceEpochMillis}".
func InstanceKey(masterID string, occurrence time.Time) string {
	return masterID + "_" + strconv.FormatInt(occurrence.UnixMilli(), 10)
}

// NewInstance copies master and re-dates the copy to occurrence.
func NewInstance(master Task, occurrence time.Time) Instance {
	copied := master
	due := occurrence
	copied.ID = InstanceKey(master.ID, occurrence)
	copied.DueDate = &due
	return Instance{
		Task:            copied,
		MasterID:        master.ID,
		OriginalDueDate: master.Due(),
	}
}

func (i Instance) Key() string { return InstanceKey(i.MasterID, i.Due()) }

func (Instance) item() {}
