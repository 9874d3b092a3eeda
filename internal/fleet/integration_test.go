package fleet_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"capsearch/internal/config"
	"capsearch/internal/core"
	"capsearch/internal/fleet"
	httpreq "capsearch/internal/http"
	"capsearch/internal/policy"
	"capsearch/internal/search"
	"capsearch/testserver"
)

func TestSearchAgainstSimulatedService(t *testing.T) {
	if testing.Short() {
		t.Skip("runs several timed rounds")
	}

	service := httptest.NewServer(testserver.NewServer(testserver.Options{QueryCapacity: 100}).Handler())
	defer service.Close()

	target := config.TargetConfig{
		URLs:   []string{service.URL},
		Query:  config.RequestConfig{Method: "GET", Path: "/query"},
		Update: config.RequestConfig{Method: "POST", Path: "/update"},
	}
	requester := httpreq.NewRequester(target, &http.Client{Timeout: 2 * time.Second}, nil)
	runner, err := fleet.NewRunner([]fleet.Generator{
		fleet.NewLocalGenerator(requester, 8),
		fleet.NewLocalGenerator(requester, 8),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	driver, err := search.New(search.Config{
		Loads:         []core.LoadLevel{20, 50, 400, 800},
		RoundDuration: 500 * time.Millisecond,
		Recording:     policy.Policy{MaxFailureRate: 0.2, MaxMedianLatency: time.Second},
		Continuation:  policy.Policy{MaxFailureRate: 0.5, MaxMedianLatency: 2 * time.Second},
		Targets:       target.URLs,
	}, runner, nil)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if outcome.Iterations != 3 {
		t.Errorf("expected the search to stop at the overloaded round, ran %d", outcome.Iterations)
	}
	if outcome.Record.BestLoad != 50 {
		t.Errorf("expected capacity recorded at load 50, got %d", outcome.Record.BestLoad)
	}
	if outcome.Record.BestThroughput <= 20 || outcome.Record.BestThroughput > 100 {
		t.Errorf("implausible capacity %.1f rps", outcome.Record.BestThroughput)
	}
	if outcome.Round.FailureRate < 0.5 {
		t.Errorf("expected the last round to be overloaded, failure rate %.2f", outcome.Round.FailureRate)
	}
}

func TestSearchLowLoadRoundLastsFullDuration(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a timed round")
	}

	service := httptest.NewServer(testserver.NewServer(testserver.Options{QueryCapacity: 100}).Handler())
	defer service.Close()

	target := config.TargetConfig{
		URLs:  []string{service.URL},
		Query: config.RequestConfig{Method: "GET", Path: "/query"},
	}
	requester := httpreq.NewRequester(target, &http.Client{Timeout: 2 * time.Second}, nil)
	runner, err := fleet.NewRunner([]fleet.Generator{fleet.NewLocalGenerator(requester, 4)}, nil)
	if err != nil {
		t.Fatal(err)
	}

	const roundDuration = time.Second
	driver, err := search.New(search.Config{
		Loads:         []core.LoadLevel{2},
		RoundDuration: roundDuration,
		Recording:     policy.Policy{MaxFailureRate: 0.2, MaxMedianLatency: time.Second},
		Continuation:  policy.Policy{MaxFailureRate: 0.5, MaxMedianLatency: 2 * time.Second},
		Targets:       target.URLs,
	}, runner, nil)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Round.Duration < roundDuration {
		t.Errorf("expected the round to last %v, measured %v", roundDuration, outcome.Round.Duration)
	}
	// 2 rps over a full second is at most 3 requests with the initial burst.
	if tp := outcome.Round.Throughput(); tp > 3 {
		t.Errorf("throughput %.1f rps overstates a load of 2", tp)
	}
}
