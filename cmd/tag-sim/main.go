package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/quicktagger/internal/tagsim"
)

// Default configuration constants.
const (
	defaultNumEvents  = 20
	defaultInterval   = 250 * time.Millisecond
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		analyst   = flag.String("analyst", "demo", "Analyst id to log in as")
		password  = flag.String("password", "demo", "Analyst password")
		numEvents = flag.Int("events", defaultNumEvents, "Number of random taps when the scenario lists none")
		scenario  = flag.String("scenario", "", "YAML scenario file")
		interval  = flag.Duration("interval", defaultInterval, "Pause between taps")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		tagsim.ShowHelp()
		return
	}

	if err := tagsim.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &tagsim.Config{
		BaseURL:   *baseURL,
		AnalystID: *analyst,
		Password:  *password,
		NumEvents: *numEvents,
		Scenario:  *scenario,
		Interval:  *interval,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if _, err := tagsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
