package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/app"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/config"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/pkg/pricefmt"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/service/aggregator"
	"github.com/NastyaGoryachaya/btc-price-aggregator/pkg/logger"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitBadInput    = 2
	exitExhausted   = 3
	exitInterrupted = 4
)

const usage = `usage:
  aggregator [-c config.yaml] [-v] list
  aggregator [-c config.yaml] [-v] get <source_id> [--no-fallback] [--timeout=<seconds>] [--shuffle]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aggregator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("c", os.Getenv("CONFIG_PATH"), "config file path")
	verbose := fs.Bool("v", false, "print every attempt and info logs")
	if err := fs.Parse(args); err != nil {
		return exitBadInput
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitBadInput
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return exitFailure
	}
	level := "error"
	if *verbose {
		level = "info"
	}
	log := logger.NewWithWriter(&config.LoggerConfig{Level: level, Format: cfg.Logger.Format}, stderr)

	core, err := app.NewCore(cfg.Aggregator, cfg.Sources, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	switch cmd := fs.Arg(0); cmd {
	case "list":
		for _, id := range core.Aggregator.ListSources() {
			fmt.Fprintln(stdout, id)
		}
		return exitOK
	case "get":
		return get(ctx, core, fs.Args()[1:], *verbose, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitBadInput
	}
}

func get(ctx context.Context, core *app.Core, args []string, verbose bool, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	noFallback := fs.Bool("no-fallback", false, "try only the given source")
	shuffle := fs.Bool("shuffle", false, "shuffle fallback sources")
	timeout := fs.Float64("timeout", 0, "total deadline in seconds")

	// флаги допускаются и до, и после id источника
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return exitBadInput
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if len(positional) != 1 {
		fs.Usage()
		return exitBadInput
	}
	if *timeout < 0 {
		fmt.Fprintln(stderr, "timeout must not be negative")
		return exitBadInput
	}

	opts := core.Options
	if *noFallback {
		opts.Fallback = false
	}
	if *shuffle {
		opts.Ordering = aggregator.OrderingShuffled
	}
	if *timeout > 0 {
		opts.Deadline = time.Duration(*timeout * float64(time.Second))
	}

	res := core.Aggregator.GetPrice(ctx, positional[0], opts)
	if verbose {
		printAttempts(stderr, res)
	}

	if res.OK {
		fmt.Fprintf(stdout, "%s (%s)\n", res.Price, res.WinningSource)
		return exitOK
	}
	fmt.Fprintln(stdout, pricefmt.Placeholder)
	fmt.Fprintln(stderr, pricefmt.FailureNotice)
	if last, ok := res.Last(); ok && last.Err != nil {
		fmt.Fprintln(stderr, last.Err.Error())
	}
	return exitCode(res.Status())
}

func exitCode(s domain.Status) int {
	switch s {
	case domain.StatusSuccess:
		return exitOK
	case domain.StatusBadInput:
		return exitBadInput
	case domain.StatusInterrupted:
		return exitInterrupted
	default:
		return exitExhausted
	}
}

func printAttempts(w io.Writer, res domain.Result) {
	for i, a := range res.Attempts {
		outcome := "ok " + a.Price.String()
		if a.Err != nil {
			outcome = a.Err.Error()
		}
		fmt.Fprintf(w, "%d. %-13s %6dms  %s\n", i+1, a.Source, a.Duration.Milliseconds(), outcome)
	}
}
