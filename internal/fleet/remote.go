package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"capsearch/internal/collector"
)

// GeneratePath is where a load generator agent accepts round requests.
const GeneratePath = "/generate"

// maxReportSize bounds the summary read from an agent.
const maxReportSize = 1 << 20

// RemoteGenerator delegates a round share to a load generator agent.
type RemoteGenerator struct {
	baseURL string
	client  *http.Client
}

func NewRemoteGenerator(baseURL string, client *http.Client) *RemoteGenerator {
	return &RemoteGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Generate posts req to the agent and blocks until it reports back.
func (g *RemoteGenerator) Generate(ctx context.Context, req GenerateRequest) (collector.Summary, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return collector.Summary{}, fmt.Errorf("encoding round request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+GeneratePath, bytes.NewReader(payload))
	if err != nil {
		return collector.Summary{}, fmt.Errorf("generator %s: %w", g.baseURL, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return collector.Summary{}, fmt.Errorf("generator %s: %w", g.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize))
	if err != nil {
		return collector.Summary{}, fmt.Errorf("generator %s: reading report: %w", g.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return collector.Summary{}, fmt.Errorf("generator %s: %s: %s", g.baseURL, resp.Status, strings.TrimSpace(string(body)))
	}

	summary, err := collector.ParseSummary(body)
	if err != nil {
		return collector.Summary{}, fmt.Errorf("generator %s: %w", g.baseURL, err)
	}
	summary.GeneratorID = req.GeneratorID
	return summary, nil
}

// NewHandler serves GeneratePath for a load generator agent, running each
// request on gen.
func NewHandler(gen Generator, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+GeneratePath, func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid round request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Duration <= 0 || req.Load < 0 {
			http.Error(w, "round request needs a positive duration and non-negative load", http.StatusBadRequest)
			return
		}

		logger.Info("generating load",
			"generator", req.GeneratorID, "load", req.Load,
			"duration", req.Duration, "mode", req.Mode, "targets", len(req.Targets))

		summary, err := gen.Generate(r.Context(), req)
		if err != nil {
			logger.Error("generation failed", "generator", req.GeneratorID, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := collector.WriteJSON(w, summary); err != nil {
			logger.Warn("writing report", "err", err)
		}
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
