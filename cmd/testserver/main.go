// Command testserver runs a simulated service with a fixed capacity.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port             Port to listen on (default: 8080)
//	-host             Host to bind to (default: localhost)
//	-query-capacity   Queries per second served (default: 500, 0 = unlimited)
//	-update-capacity  Updates per second served (default: 100, 0 = unlimited)
//	-latency          Latency added to every served request (default: 5ms)
//	-jitter           Random extra latency up to this value (default: 5ms)
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capsearch/internal/logging"
	"capsearch/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	queryCap := flag.Int("query-capacity", 500, "queries per second served (0 = unlimited)")
	updateCap := flag.Int("update-capacity", 100, "updates per second served (0 = unlimited)")
	latency := flag.Duration("latency", 5*time.Millisecond, "latency added to every served request")
	jitter := flag.Duration("jitter", 5*time.Millisecond, "random extra latency")
	flag.Parse()

	logger, err := logging.New(os.Stderr, slog.LevelInfo, logging.FormatText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	server := testserver.NewServer(testserver.Options{
		QueryCapacity:  *queryCap,
		UpdateCapacity: *updateCap,
		Latency:        *latency,
		Jitter:         *jitter,
	})
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("capsearch Test Server")
	fmt.Println("=====================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health              - Health check")
	fmt.Println("  GET  /query               - Read, limited by -query-capacity")
	fmt.Println("  POST /update              - Write, limited by -update-capacity")
	fmt.Println("  GET  /stats               - Served and rejected counters")
	fmt.Println("  GET  /status/{code}       - Return specific status code")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		stats := server.Stats()
		logger.Info("shutting down", "queries", stats.Queries, "updates", stats.Updates, "rejected", stats.Rejected)
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
