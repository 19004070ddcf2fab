package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"recurcal/internal/config"
	"recurcal/internal/dataset"
	"recurcal/internal/expand"
	"recurcal/internal/ics"
	"recurcal/internal/importer"
	appLog "recurcal/internal/log"
	"recurcal/internal/recurrence"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("usage")

// app runs one CLI command against a loaded config.
type app struct {
	cfg    *config.Config
	stdout io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}

	switch args[0] {
	case "rule":
		if len(args) < 2 {
			return fmt.Errorf("rule: want encode or decode: %w", errUsage)
		}
		switch args[1] {
		case "encode":
			return a.ruleEncode(args[2:])
		case "decode":
			return a.ruleDecode(args[2:])
		}
		return fmt.Errorf("rule %s: %w", args[1], errUsage)
	case "expand":
		return a.expand(args[1:])
	case "export":
		return a.export(ctx, args[1:])
	case "import":
		return a.importDoc(args[1:])
	case "validate":
		return a.validate(args[1:])
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

func (a *app) ruleEncode(args []string) error {
	fs := flag.NewFlagSet("rule encode", flag.ContinueOnError)
	freq := fs.String("freq", "weekly", "none, daily, weekly, monthly or yearly")
	interval := fs.Int("interval", 1, "repeat every N units")
	days := fs.String("days", "", "weekly days as codes, e.g. MO,WE")
	count := fs.Int("count", 0, "end after N occurrences")
	until := fs.String("until", "", "end on this date (YYYY-MM-DD)")
	anchor := fs.String("anchor", "", "first occurrence (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := recurrence.Config{
		Frequency:  recurrence.Frequency(strings.ToLower(*freq)),
		Interval:   *interval,
		DaysOfWeek: recurrence.ParseByDayValue(*days),
	}
	switch {
	case *count > 0 && *until != "":
		return errors.New("rule encode: -count and -until are mutually exclusive")
	case *count > 0:
		cfg.End = recurrence.AfterCount(*count)
	case *until != "":
		d, err := time.Parse(dateLayout, *until)
		if err != nil {
			return fmt.Errorf("rule encode: -until: %w", err)
		}
		cfg.End = recurrence.UntilDate(d)
	}

	var anchorAt time.Time
	if *anchor != "" {
		d, err := time.ParseInLocation(dateLayout, *anchor, a.cfg.Location())
		if err != nil {
			return fmt.Errorf("rule encode: -anchor: %w", err)
		}
		anchorAt = d
	}

	rule, ok := recurrence.Encode(cfg, anchorAt)
	if !ok {
		fmt.Fprintln(a.stdout, "none")
		return nil
	}
	fmt.Fprintln(a.stdout, rule)
	return nil
}

// ruleView is the printable form of a decoded rule.
type ruleView struct {
	Frequency recurrence.Frequency `yaml:"frequency"`
	Interval  int                  `yaml:"interval"`
	Days      []string             `yaml:"days,omitempty"`
	End       string               `yaml:"end"`
}

func (a *app) ruleDecode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rule decode <rule>: %w", errUsage)
	}
	cfg := recurrence.Decode(args[0])

	view := ruleView{Frequency: cfg.Frequency, Interval: cfg.Interval, End: "never"}
	for _, d := range cfg.DaysOfWeek {
		view.Days = append(view.Days, recurrence.DayCode(d))
	}
	switch cfg.End.Kind {
	case recurrence.EndAfterCount:
		view.End = fmt.Sprintf("after %d", cfg.End.Count)
	case recurrence.EndUntil:
		view.End = "until " + cfg.End.Until.Format(dateLayout)
	}
	return a.writeYAML(view)
}

func (a *app) expand(args []string) error {
	fs := flag.NewFlagSet("expand", flag.ContinueOnError)
	data := fs.String("data", "", "dataset YAML with tasks")
	from := fs.String("from", "", "window start (YYYY-MM-DD)")
	to := fs.String("to", "", "window end (YYYY-MM-DD)")
	max := fs.Int("max", a.cfg.Expand.MaxInstances, "candidate occurrences scanned per task")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *data == "" || *from == "" || *to == "" {
		return fmt.Errorf("expand: -data, -from and -to are required: %w", errUsage)
	}

	loc := a.cfg.Location()
	start, err := time.ParseInLocation(dateLayout, *from, loc)
	if err != nil {
		return fmt.Errorf("expand: -from: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, *to, loc)
	if err != nil {
		return fmt.Errorf("expand: -to: %w", err)
	}

	f, err := dataset.Load(*data)
	if err != nil {
		return err
	}

	e := expand.New(recurrence.NewCache(a.cfg.Expand.CacheSize), a.cfg.Expand.MaxInstances)
	items := e.ExpandAll(f.Tasks, start, end, *max)
	appLog.Info("expanded tasks", "tasks", len(f.Tasks), "occurrences", len(items))
	return a.writeYAML(dataset.Occurrences(items))
}

func (a *app) encoder() *ics.Encoder {
	return ics.NewEncoder(ics.EncoderOptions{
		ProductID:    a.cfg.Calendar.ProductID,
		CalendarName: a.cfg.Calendar.Name,
		Timezone:     a.cfg.Timezone,
		UIDDomain:    a.cfg.Calendar.UIDDomain,
		DefaultStart: a.cfg.Timetable.DefaultStart,
		DefaultEnd:   a.cfg.Timetable.DefaultEnd,
	})
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	data := fs.String("data", "", "dataset YAML with tasks and timetable")
	out := fs.String("o", a.cfg.Export.Output, `output path ("-" for stdout)`)
	watch := fs.Bool("watch", false, "re-export on the configured refresh schedule until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *data == "" {
		return fmt.Errorf("export: -data is required: %w", errUsage)
	}

	enc := a.encoder()
	runOnce := func() error {
		f, err := dataset.Load(*data)
		if err != nil {
			return err
		}
		doc := enc.Encode(f.Tasks, f.Timetable)
		if *out == "-" {
			_, err = io.WriteString(a.stdout, doc)
			return err
		}
		if err := config.WriteFileAtomic(*out, []byte(doc)); err != nil {
			return err
		}
		appLog.Info("export written", "path", *out, "tasks", len(f.Tasks), "timetable_entries", len(f.Timetable))
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	c := cron.New(cron.WithLocation(a.cfg.Location()))
	if _, err := c.AddFunc(a.cfg.Export.Refresh, func() {
		if err := runOnce(); err != nil {
			appLog.Error("scheduled export failed", err, "path", *out)
		}
	}); err != nil {
		return fmt.Errorf("export: schedule %q: %w", a.cfg.Export.Refresh, err)
	}

	appLog.Info("export watch started", "refresh", a.cfg.Export.Refresh, "path", *out)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("export watch stopped")
	return nil
}

func (a *app) importDoc(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "", "calendar document to import")
	out := fs.String("o", "", "write drafts to this path instead of stdout")
	strict := fs.Bool("strict", false, "reject documents that fail validation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("import: -in is required: %w", errUsage)
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	doc := string(raw)

	if *strict {
		if v := ics.Validate(doc); !v.IsValid {
			a.printValidation(v)
			return errInvalid
		}
	}

	res := ics.NewParser(a.cfg.Location()).Parse(doc)
	if !res.Success {
		return fmt.Errorf("import: %s is not a calendar document", *in)
	}
	for _, d := range res.Dropped {
		fmt.Fprintf(os.Stderr, "dropped event %d (uid %q): missing %s\n", d.Index, d.UID, strings.Join(d.Missing, ", "))
	}

	drafts := importer.Map(res.Events)
	data, err := dataset.Encode(&dataset.File{Tasks: drafts.Tasks, Timetable: drafts.Entries})
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = a.stdout.Write(data)
		return err
	}
	return config.WriteFileAtomic(*out, data)
}

func (a *app) validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	in := fs.String("in", "", "calendar document to check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("validate: -in is required: %w", errUsage)
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	v := ics.Validate(string(raw))
	a.printValidation(v)
	if !v.IsValid {
		return errInvalid
	}
	return nil
}

func (a *app) printValidation(v ics.ValidationResult) {
	if v.IsValid {
		fmt.Fprintf(a.stdout, "valid: %d event(s)\n", v.EventCount)
		return
	}
	fmt.Fprintf(a.stdout, "invalid: %d error(s)\n", len(v.Errors))
	for _, e := range v.Errors {
		fmt.Fprintln(a.stdout, "  -", e)
	}
}

func (a *app) writeYAML(v any) error {
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
