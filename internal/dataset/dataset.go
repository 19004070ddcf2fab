// Package dataset reads and writes the YAML files the CLI works with: task
// and timetable fixtures going into export/expand, and drafts coming out of
// import. Weekdays are written as rule day codes ("MO", "TU", ...).
package dataset

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

var ErrUnknownDay = errors.New("unknown day code")

// File is the on-disk layout of a dataset.
type File struct {
	Tasks     []model.Task
	Timetable []model.TimetableEntry
}

type fileDoc struct {
	Tasks     []model.Task   `yaml:"tasks,omitempty"`
	Timetable []timetableDoc `yaml:"timetable,omitempty"`
}

type timetableDoc struct {
	model.TimetableEntry `yaml:",inline"`
	Days                 []string `yaml:"days,omitempty"`
}

// Load reads a dataset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return f, nil
}

// Decode parses dataset YAML. Entries may give weekdays either as "days"
// codes or as numeric "days_of_week" (Sunday = 0); codes win when both are
// present.
func Decode(data []byte) (*File, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	f := &File{Tasks: doc.Tasks}
	for i, td := range doc.Timetable {
		entry := td.TimetableEntry
		if len(td.Days) > 0 {
			days := make([]time.Weekday, 0, len(td.Days))
			for _, code := range td.Days {
				d, ok := recurrence.ParseDayCode(code)
				if !ok {
					return nil, fmt.Errorf("timetable[%d] %q: %w", i, code, ErrUnknownDay)
				}
				days = append(days, d)
			}
			entry.DaysOfWeek = days
		}
		f.Timetable = append(f.Timetable, entry)
	}
	return f, nil
}

// Encode renders f as YAML with weekday codes.
func Encode(f *File) ([]byte, error) {
	doc := fileDoc{Tasks: f.Tasks}
	for _, entry := range f.Timetable {
		td := timetableDoc{TimetableEntry: entry}
		if days := entry.DaysOfWeek; len(days) > 0 {
			td.Days = strings.Split(recurrence.FormatByDay(days), ",")
			td.DaysOfWeek = nil
		}
		doc.Timetable = append(doc.Timetable, td)
	}
	return yaml.Marshal(&doc)
}

// Occurrence is the printable form of an expanded item.
type Occurrence struct {
	Key      string    `yaml:"key"`
	MasterID string    `yaml:"master_id,omitempty"`
	Title    string    `yaml:"title"`
	Due      time.Time `yaml:"due"`
	Virtual  bool      `yaml:"virtual"`
}

// Occurrences flattens expanded items for output.
func Occurrences(items []model.Item) []Occurrence {
	out := make([]Occurrence, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case model.Task:
			out = append(out, Occurrence{Key: v.Key(), Title: v.Title, Due: v.Due()})
		case model.Instance:
			out = append(out, Occurrence{Key: v.Key(), MasterID: v.MasterID, Title: v.Title, Due: v.Due(), Virtual: true})
		}
	}
	return out
}
