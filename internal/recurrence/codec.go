// Package recurrence converts between the structured recurrence Config used by
// editors and the compact rule string persisted on task records, e.g.
//
//	FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE;COUNT=4
//
// Decoding is tolerant: unknown parameters are ignored and anything that
// cannot be understood degrades to a non-recurring Config instead of an error.
package recurrence

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "recurcal/internal/log"
)

type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

var freqTokens = map[Frequency]string{
	FrequencyDaily:   "DAILY",
	FrequencyWeekly:  "WEEKLY",
	FrequencyMonthly: "MONTHLY",
	FrequencyYearly:  "YEARLY",
}

var ruleFreqs = map[Frequency]rrule.Frequency{
	FrequencyDaily:   rrule.DAILY,
	FrequencyWeekly:  rrule.WEEKLY,
	FrequencyMonthly: rrule.MONTHLY,
	FrequencyYearly:  rrule.YEARLY,
}

// EndKind selects which end condition of a rule is in effect.
type EndKind int

const (
	EndNever EndKind = iota
	EndAfterCount
	EndUntil
)

// End is the rule's end condition. Only the field matching Kind is meaningful.
type End struct {
	Kind  EndKind
	Count int
	// Until is a civil date; only its year, month and day are used.
	Until time.Time
}

func Never() End { return End{Kind: EndNever} }

func AfterCount(n int) End { return End{Kind: EndAfterCount, Count: n} }

// UntilDate ends the rule at the end of day d (UTC).
func UntilDate(d time.Time) End {
	y, m, day := d.Date()
	return End{Kind: EndUntil, Until: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

// Config is the structured form of a recurrence rule.
type Config struct {
	Frequency Frequency
	// Interval is "every N units"; values below 1 are treated as 1.
	Interval int
	// DaysOfWeek only applies to weekly rules. Empty means the anchor's weekday.
	DaysOfWeek []time.Weekday
	End        End
}

// None is the Config of a non-recurring task.
func None() Config {
	return Config{Frequency: FrequencyNone, Interval: 1}
}

const (
	untilLayout     = "20060102T150405Z"
	untilLocalForm  = "20060102T150405"
	untilDateLayout = "20060102"
)

var errNoFreq = errors.New("missing or unknown FREQ")

// Normalize enforces the Config invariants: interval >= 1, weekday set only
// for weekly rules (de-duplicated, Monday first), and a usable end condition.
func (c Config) Normalize() Config {
	if _, ok := freqTokens[c.Frequency]; !ok {
		return None()
	}
	if c.Interval < 1 {
		c.Interval = 1
	}
	if c.Frequency == FrequencyWeekly {
		c.DaysOfWeek = SortDays(c.DaysOfWeek)
	} else {
		c.DaysOfWeek = nil
	}
	switch c.End.Kind {
	case EndAfterCount:
		if c.End.Count < 1 {
			c.End = Never()
		} else {
			c.End = AfterCount(c.End.Count)
		}
	case EndUntil:
		if c.End.Until.IsZero() {
			c.End = Never()
		} else {
			c.End = UntilDate(c.End.Until)
		}
	default:
		c.End = Never()
	}
	return c
}

// IsRecurring reports whether c describes a repeating schedule.
func (c Config) IsRecurring() bool {
	_, ok := freqTokens[c.Frequency]
	return ok
}

// Encode renders cfg as a rule string. ok is false when cfg does not recur.
//
// anchor is the first occurrence (the master's due date); an UNTIL date that
// precedes it still encodes but is logged, since such a rule yields nothing
// beyond the anchor.
func Encode(cfg Config, anchor time.Time) (rule string, ok bool) {
	cfg = cfg.Normalize()
	if !cfg.IsRecurring() {
		return "", false
	}

	parts := []string{
		"FREQ=" + freqTokens[cfg.Frequency],
		"INTERVAL=" + strconv.Itoa(cfg.Interval),
	}
	if len(cfg.DaysOfWeek) > 0 {
		parts = append(parts, "BYDAY="+FormatByDay(cfg.DaysOfWeek))
	}

	switch cfg.End.Kind {
	case EndAfterCount:
		parts = append(parts, "COUNT="+strconv.Itoa(cfg.End.Count))
	case EndUntil:
		parts = append(parts, "UNTIL="+EndOfDayUTC(cfg.End.Until))
		if !anchor.IsZero() && cfg.End.Until.Before(UntilDate(anchor).Until) {
			appLog.Warn("recurrence: UNTIL precedes anchor", "until", cfg.End.Until.Format(untilDateLayout), "anchor", anchor.Format(time.RFC3339))
		}
	}

	return strings.Join(parts, ";"), true
}

// EndOfDayUTC formats the civil date of d as "YYYYMMDDT235959Z".
func EndOfDayUTC(d time.Time) string {
	y, m, day := d.Date()
	return time.Date(y, m, day, 23, 59, 59, 0, time.UTC).Format(untilLayout)
}

// Decode parses a rule string. It never fails: unparseable input is logged and
// yields None().
//
// COUNT wins over UNTIL when both are present. A weekly rule without BYDAY
// decodes with an empty weekday set, which the expander reads as "same
// weekday as the anchor".
func Decode(rule string) Config {
	cfg, err := decode(rule)
	if err != nil {
		appLog.Warn("recurrence: rule decode failed, treating as non-recurring", "rule", rule, "reason", err.Error())
		return None()
	}
	return cfg
}

func decode(rule string) (Config, error) {
	cfg := Config{Interval: 1}

	var (
		count    string
		until    string
		hasCount bool
		hasUntil bool
	)

	for _, p := range splitRule(rule) {
		switch p.key {
		case "FREQ":
			cfg.Frequency = parseFreqToken(p.value)
		case "INTERVAL":
			if n, err := strconv.Atoi(p.value); err == nil && n >= 1 {
				cfg.Interval = n
			}
		case "BYDAY":
			cfg.DaysOfWeek = ParseByDayValue(p.value)
		case "COUNT":
			count, hasCount = p.value, true
		case "UNTIL":
			until, hasUntil = p.value, true
		}
	}

	if !cfg.IsRecurring() {
		return Config{}, errNoFreq
	}

	// A malformed COUNT does not hide a usable UNTIL.
	if n, err := strconv.Atoi(count); hasCount && err == nil && n >= 1 {
		cfg.End = AfterCount(n)
	} else if d, ok := parseUntil(until); hasUntil && ok {
		cfg.End = UntilDate(d)
	}

	return cfg.Normalize(), nil
}

func parseFreqToken(tok string) Frequency {
	for f, t := range freqTokens {
		if t == tok {
			return f
		}
	}
	return FrequencyNone
}

func parseUntil(v string) (time.Time, bool) {
	if t, err := time.Parse(untilLayout, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(untilLocalForm, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(untilDateLayout, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type ruleParam struct {
	key   string
	value string
}

// splitRule breaks "RRULE:FREQ=...;X=Y" into upper-cased keys and trimmed
// values. Tokens without '=' are dropped.
func splitRule(rule string) []ruleParam {
	rule = strings.TrimSpace(rule)
	if len(rule) >= 6 && strings.EqualFold(rule[:6], "RRULE:") {
		rule = rule[6:]
	}
	var out []ruleParam
	for _, tok := range strings.Split(rule, ";") {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		out = append(out, ruleParam{
			key:   strings.ToUpper(strings.TrimSpace(k)),
			value: strings.ToUpper(strings.TrimSpace(v)),
		})
	}
	return out
}

// Option builds the rrule-go options for cfg anchored at dtstart. ok is false
// when cfg does not recur.
func (c Config) Option(dtstart time.Time) (rrule.ROption, bool) {
	c = c.Normalize()
	freq, ok := ruleFreqs[c.Frequency]
	if !ok {
		return rrule.ROption{}, false
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: c.Interval,
		Dtstart:  dtstart,
	}
	for _, d := range c.DaysOfWeek {
		opt.Byweekday = append(opt.Byweekday, RuleWeekday(d))
	}
	switch c.End.Kind {
	case EndAfterCount:
		opt.Count = c.End.Count
	case EndUntil:
		y, m, d := c.End.Until.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	}
	return opt, true
}
