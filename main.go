package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/wildstyl3r/exopic/internal/config"
	"github.com/wildstyl3r/exopic/internal/diagnostics"
	"github.com/wildstyl3r/exopic/internal/fault"
)

func main() {
	os.Exit(execute())
}

// execute returns the exit status: 1 for unusable input, 2 when the physics
// went inconsistent on any rank.
func execute() int {
	var configFileNamePointer = flag.String("input", "exopic", "run configuration in toml format")
	var cycles = flag.Int("cycles", -1, "number of cycles, overrides the configuration when non-negative")
	var verbose = flag.Bool("v", false, "log every stage of every cycle")
	var logFileName = flag.String("log", "", "write rank logs to this file instead of stderr")
	df := diagnostics.NewFlags(flag.CommandLine)
	flag.Parse()

	startTime := time.Now()
	fmt.Printf("Current time: %s\n", startTime.UTC().Format(time.UnixDate))

	cfg, _, err := config.LoadConfig(*configFileNamePointer)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *cycles >= 0 {
		cfg.Cycles = *cycles
	}
	cfg.Verbose = cfg.Verbose || *verbose

	var logOut io.Writer = os.Stderr
	if *logFileName != "" {
		logFile, err := os.Create(*logFileName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer logFile.Close()
		logOut = logFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("\rDone:[0/%d]", cfg.Cycles)
	run, runErr := simulate(ctx, &cfg, logOut, func(done int) {
		fmt.Printf("\rDone:[%d/%d]", done, cfg.Cycles)
	})
	println()

	saved, err := df.Save(run, cfg.OutputDir, *configFileNamePointer, cfg.MakeDir)
	for _, name := range saved {
		println(name + " saved")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	names := run.Species()
	for s, t := range run.Totals() {
		fmt.Printf("%s: %d particles, Qion=%g Qexo=%g Qsphere=%g Qrep=%g Qlost=%g\n",
			names[s], t.Particles, t.Qion, t.Qexo, t.Qdel, t.Qrep, t.Qlost)
	}
	mean, variance := run.Passes()
	fmt.Printf("Migration passes per cycle: %.2f ± %.2f\n", mean, math.Sqrt(variance))
	fmt.Printf("Elapsed: %s\n", time.Since(startTime).Round(time.Millisecond))

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		if fault.IsFatal(runErr) {
			return 2
		}
		return 1
	}
	return 0
}
