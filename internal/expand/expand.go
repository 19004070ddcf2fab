package expand

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

const (
	// DefaultMaxInstances bounds the candidate occurrences scanned per master
	// when the caller passes a non-positive limit.
	DefaultMaxInstances = 500
)

// Decoder turns a stored rule string into a recurrence Config.
// *recurrence.Cache satisfies it.
type Decoder interface {
	Decode(rule string) recurrence.Config
}

type decodeFunc func(string) recurrence.Config

func (f decodeFunc) Decode(rule string) recurrence.Config { return f(rule) }

// Expander materialises master tasks into occurrences. It holds no mutable
// state of its own and may be shared between goroutines as long as its
// Decoder is.
type Expander struct {
	decoder      Decoder
	maxInstances int
}

// New creates an Expander. A nil decoder means recurrence.Decode; a
// non-positive maxInstances means DefaultMaxInstances.
func New(decoder Decoder, maxInstances int) *Expander {
	if decoder == nil {
		decoder = decodeFunc(recurrence.Decode)
	}
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}
	return &Expander{decoder: decoder, maxInstances: maxInstances}
}

var defaultExpander = New(nil, DefaultMaxInstances)

// Expand is Expander.Expand on an Expander without a decode cache.
func Expand(master model.Task, windowStart, windowEnd time.Time, maxInstances int) []model.Item {
	return defaultExpander.Expand(master, windowStart, windowEnd, maxInstances)
}

// Expand returns the occurrences of master whose due date falls in
// [start of windowStart's day, end of windowEnd's day], ascending.
//
//   - A task without a rule is returned as-is when it falls in the window.
//   - The occurrence at the master's own due date is the master Task itself;
//     every other occurrence is a model.Instance.
//   - At most maxInstances candidate occurrences are scanned (the Expander
//     default when maxInstances <= 0), counting those before the window.
//   - windowEnd before windowStart yields an empty result.
func (e *Expander) Expand(master model.Task, windowStart, windowEnd time.Time, maxInstances int) []model.Item {
	out := make([]model.Item, 0)

	if windowEnd.Before(windowStart) {
		appLog.Debug("expand: window end before start", "task", master.ID, "start", windowStart.Format(time.RFC3339), "end", windowEnd.Format(time.RFC3339))
		return out
	}
	if master.DueDate == nil {
		return out
	}
	if maxInstances <= 0 {
		maxInstances = e.maxInstances
	}

	lo := StartOfDay(windowStart)
	hi := EndOfDay(windowEnd)
	due := *master.DueDate

	r, ok := e.rule(master)
	if !ok {
		if inRange(due, lo, hi) {
			out = append(out, master)
		}
		return out
	}

	anchor := due.Truncate(time.Second)
	next := r.Iterator()
	emittedMaster := false
	scanned := 0

	for ; scanned < maxInstances; scanned++ {
		occ, more := next()
		if !more {
			return out
		}
		if occ.After(hi) {
			return out
		}
		if occ.Before(lo) || occ.Before(anchor) {
			continue
		}
		if occ.Equal(anchor) {
			if !emittedMaster {
				out = append(out, master)
				emittedMaster = true
			}
			continue
		}
		out = append(out, model.NewInstance(master, occ))
	}

	appLog.Debug("expand: scan cap reached", "task", master.ID, "cap", maxInstances, "emitted", len(out))
	return out
}

// ExpandAll expands every task over the same window and merges the result by
// due date. Ties keep input order.
func (e *Expander) ExpandAll(tasks []model.Task, windowStart, windowEnd time.Time, maxInstances int) []model.Item {
	out := make([]model.Item, 0)
	for _, t := range tasks {
		out = append(out, e.Expand(t, windowStart, windowEnd, maxInstances)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Due().Before(out[j].Due())
	})
	return out
}

// rule builds the rrule for a master. ok is false when the task should be
// treated as non-recurring, including when its rule cannot be decoded.
func (e *Expander) rule(master model.Task) (*rrule.RRule, bool) {
	if !master.IsRecurring() {
		return nil, false
	}
	cfg := e.decoder.Decode(master.RecurrenceRule)
	opt, ok := cfg.Option(*master.DueDate)
	if !ok {
		return nil, false
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "task", master.ID, "rrule", master.RecurrenceRule)
		return nil, false
	}
	return r, true
}

// StartOfDay is midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last nanosecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func inRange(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}
