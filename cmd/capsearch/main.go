// Command capsearch measures the capacity of a service by offering it an
// increasing load until its failure rate or median latency degrades.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"capsearch/internal/config"
	"capsearch/internal/fleet"
	httpreq "capsearch/internal/http"
	"capsearch/internal/logging"
	"capsearch/internal/progress"
	"capsearch/internal/report"
	"capsearch/internal/search"
)

const (
	ExitSuccess       = 0
	ExitBelowCapacity = 1
	ExitError         = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	loads       string
	duration    time.Duration
	updates     bool
	output      string
	quiet       bool
	verbose     bool
	logLevel    string
	logFormat   string
	metricsAddr string
	minCapacity float64
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("capsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "path to YAML config file (required)")
	fs.StringVar(&o.loads, "load", "", "comma-separated load levels in requests/s, overrides search.loads")
	fs.DurationVar(&o.duration, "duration", 0, "duration of each round, overrides search.roundDuration")
	fs.BoolVar(&o.updates, "updates", false, "issue update requests instead of queries")
	fs.StringVar(&o.output, "output", "text", "output format: text, json")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress per-round progress output")
	fs.BoolVar(&o.verbose, "verbose", false, "enable debug output (request/response logging)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text, json")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the search")
	fs.Float64Var(&o.minCapacity, "min-capacity", 0, "exit with status 1 if the measured capacity is below this rate")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if o.configPath == "" {
		return nil, nil, errors.New("--config is required")
	}
	if o.output != "text" && o.output != "json" {
		return nil, nil, fmt.Errorf("--output must be 'text' or 'json', got %q", o.output)
	}
	return &o, set, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	logger, err := logging.New(stderr, level, opts.logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	ov, err := overrides(opts, set)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	cfg, err := config.LoadConfigWithOverrides(opts.configPath, ov)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	searchCfg, err := cfg.SearchConfig()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	var debug *httpreq.DebugLogger
	if opts.verbose {
		debug = httpreq.NewDebugLogger(stderr)
	}
	runner, err := fleet.NewRunner(buildGenerators(cfg, debug), nil)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	runner.SetLogger(logger)

	text := progress.NewTextSink(opts.quiet)
	text.SetOutput(stderr)
	sinks := progress.MultiSink{text}
	if cfg.Report.Dir != "" {
		file, err := progress.NewFileSink(cfg.Report.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitError
		}
		logger.Info("writing progress report", "path", file.Path(), "run_id", file.RunID())
		sinks = append(sinks, file)
	}
	if opts.metricsAddr != "" {
		metrics := progress.NewMetricsSink()
		shutdown, err := serveMetrics(opts.metricsAddr, metrics.Handler(), logger)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitError
		}
		defer shutdown()
		sinks = append(sinks, metrics)
	}

	driver, err := search.New(searchCfg, runner, sinks)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	driver.SetLogger(logger)

	text.Printf("capsearch starting: %d load levels, %v per round, %s mode, %d generators",
		len(searchCfg.Loads), searchCfg.RoundDuration, searchCfg.Mode(), len(cfg.Fleet.Remote)+localCount(cfg))

	outcome, err := driver.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "search interrupted")
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}

	if opts.output == "json" {
		if err := report.FormatJSON(stdout, outcome); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitError
		}
	} else {
		report.FormatText(stdout, outcome)
	}

	if opts.minCapacity > 0 && outcome.Record.BestThroughput < opts.minCapacity {
		if opts.output == "text" {
			fmt.Fprintf(stderr, "\nCapacity %.1f req/s is below the required %.1f req/s\n",
				outcome.Record.BestThroughput, opts.minCapacity)
		}
		return ExitBelowCapacity
	}
	return ExitSuccess
}

// overrides turns the flags that were set into config overrides.
func overrides(opts *options, set map[string]bool) (config.Overrides, error) {
	var ov config.Overrides
	if opts.loads != "" {
		loads, err := parseLoads(opts.loads)
		if err != nil {
			return ov, err
		}
		ov.Loads = loads
	}
	if set["duration"] {
		ov.RoundDuration = &opts.duration
	}
	if set["updates"] {
		ov.Updates = &opts.updates
	}
	return ov, nil
}

func parseLoads(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	loads := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("--load: %q is not a number", p)
		}
		loads = append(loads, n)
	}
	return loads, nil
}

func localCount(cfg *config.Config) int {
	if len(cfg.Fleet.Remote) > 0 {
		return 0
	}
	return cfg.Fleet.Generators
}

// buildGenerators uses the remote agents when any are configured and local
// generators otherwise.
func buildGenerators(cfg *config.Config, debug *httpreq.DebugLogger) []fleet.Generator {
	if len(cfg.Fleet.Remote) > 0 {
		client := &http.Client{}
		gens := make([]fleet.Generator, len(cfg.Fleet.Remote))
		for i, url := range cfg.Fleet.Remote {
			gens[i] = fleet.NewRemoteGenerator(url, client)
		}
		return gens
	}

	client := &http.Client{
		Timeout: cfg.Fleet.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.Fleet.Generators * cfg.Fleet.ActorsPerGenerator,
			MaxIdleConnsPerHost: cfg.Fleet.Generators * cfg.Fleet.ActorsPerGenerator,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	requester := httpreq.NewRequester(cfg.Target, client, debug)
	gens := make([]fleet.Generator, cfg.Fleet.Generators)
	for i := range gens {
		gens[i] = fleet.NewLocalGenerator(requester, cfg.Fleet.ActorsPerGenerator)
	}
	return gens
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
