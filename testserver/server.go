// Package testserver provides a simulated service with a fixed capacity for
// exercising capacity searches.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Options describes the simulated service.
type Options struct {
	// QueryCapacity and UpdateCapacity are the requests per second served
	// before the service starts rejecting with 503. Bursts of a tenth of the
	// capacity are absorbed. Zero means unlimited.
	QueryCapacity  int
	UpdateCapacity int
	// Latency is added to every served request, plus up to Jitter.
	Latency time.Duration
	Jitter  time.Duration
}

// Stats counts what the server has seen.
type Stats struct {
	Queries  int64 `json:"queries"`
	Updates  int64 `json:"updates"`
	Rejected int64 `json:"rejected"`
}

// Server is a simulated service under test.
type Server struct {
	mux     *http.ServeMux
	opts    Options
	queries *rate.Limiter
	updates *rate.Limiter

	served   atomic.Int64
	queried  atomic.Int64
	updated  atomic.Int64
	rejected atomic.Int64
}

// NewServer creates a new test server with all endpoints configured.
func NewServer(opts Options) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		opts:    opts,
		queries: newLimiter(opts.QueryCapacity),
		updates: newLimiter(opts.UpdateCapacity),
	}
	s.registerHandlers()
	return s
}

func newLimiter(capacity int) *rate.Limiter {
	if capacity <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(capacity), max(1, capacity/10))
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Stats returns the request counters.
func (s *Server) Stats() Stats {
	return Stats{
		Queries:  s.queried.Load(),
		Updates:  s.updated.Load(),
		Rejected: s.rejected.Load(),
	}
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /query", s.handleQuery)
	s.mux.HandleFunc("POST /update", s.handleUpdate)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("/status/{code}", s.handleStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleQuery serves a read if the query capacity allows it.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.queries.Allow() {
		s.reject(w)
		return
	}
	if !s.delay(r) {
		return
	}
	s.queried.Add(1)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":%d,"value":%d}`, s.served.Add(1), rand.Intn(1000))
}

// handleUpdate consumes the request body and serves a write if the update
// capacity allows it.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !s.updates.Allow() {
		s.reject(w)
		return
	}
	if !s.delay(r) {
		return
	}
	s.updated.Add(1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

// handleStatus returns the specified HTTP status code.
// Example: GET /status/404 returns 404 Not Found
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

func (s *Server) reject(w http.ResponseWriter) {
	s.rejected.Add(1)
	http.Error(w, "over capacity", http.StatusServiceUnavailable)
}

// delay waits out the configured latency. It returns false if the client
// went away first.
func (s *Server) delay(r *http.Request) bool {
	d := s.opts.Latency
	if s.opts.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.opts.Jitter)))
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}
