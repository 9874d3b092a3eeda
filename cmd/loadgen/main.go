// Command loadgen is a load generator agent. It accepts round requests from
// capsearch on /generate, offers the load to the targets named in each
// request and replies with a JSON summary.
//
// Usage:
//
//	loadgen --config capsearch.yaml [flags]
//
// The config file supplies the request shapes (target.query, target.update)
// and fleet.actorsPerGenerator. target.urls may be omitted since target URLs
// come with every round. Template variables the driver sends with -var in
// fleet.args must also be declared in the agent's own fleet.args.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capsearch/internal/config"
	"capsearch/internal/fleet"
	httpreq "capsearch/internal/http"
	"capsearch/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	listen := flag.String("listen", ":9090", "address to accept round requests on")
	actors := flag.Int("actors", 0, "actors per round, overrides fleet.actorsPerGenerator")
	verbose := flag.Bool("verbose", false, "enable debug output (request/response logging)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text, json")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: --config is required")
		flag.Usage()
		os.Exit(2)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, level, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadAgentConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if *actors > 0 {
		cfg.Fleet.ActorsPerGenerator = *actors
	}

	var debug *httpreq.DebugLogger
	if *verbose {
		debug = httpreq.NewDebugLogger(os.Stderr)
	}
	client := &http.Client{
		Timeout: cfg.Fleet.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: cfg.Fleet.ActorsPerGenerator,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	gen := fleet.NewLocalGenerator(httpreq.NewRequester(cfg.Target, client, debug), cfg.Fleet.ActorsPerGenerator)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           fleet.NewHandler(gen, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("load generator listening", "addr", *listen, "actors", cfg.Fleet.ActorsPerGenerator)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
