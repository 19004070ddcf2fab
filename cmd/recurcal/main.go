package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"recurcal/internal/config"
	appLog "recurcal/internal/log"
)

const usage = `usage: recurcal [-config path] <command> [flags]

commands:
  rule encode   build a rule string from flags
  rule decode   print the structured form of a rule string
  expand        list occurrences of dataset tasks in a date window
  export        write dataset tasks and timetable as a calendar document
  import        map a calendar document onto draft tasks/timetable entries
  validate      check the structure of a calendar document
`

// errInvalid marks a command that ran but found problems (exit status 1
// without an extra error line).
var errInvalid = errors.New("invalid input")

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", *configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", *configPath)
		os.Exit(1)
	}

	appLog.Debug("effective config",
		"timezone", conf.Timezone,
		"max_instances", conf.Expand.MaxInstances,
		"cache_size", conf.Expand.CacheSize,
		"refresh", conf.Export.Refresh,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: conf, stdout: os.Stdout}
	if err := a.run(ctx, flag.Args()); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "recurcal:", err)
		}
		cancel()
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/recurcal/config.yaml"
	}
	return "recurcal.yaml"
}
