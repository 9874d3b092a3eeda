// Package http issues the query and update requests a load generator offers
// to the system under test.
package http

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"capsearch/internal/config"
	"capsearch/internal/core"
	"capsearch/internal/template"
)

// maxDebugBodySize limits response body logged in verbose mode.
const maxDebugBodySize = 4096

// Requester builds and sends one request per call.
type Requester struct {
	target config.TargetConfig
	client *http.Client
	debug  *DebugLogger
	seq    atomic.Int64
}

// Origin identifies the actor issuing a request and carries the round's
// extra template variables.
type Origin struct {
	GeneratorID int
	ActorID     int
	Vars        template.Vars
}

func (o Origin) String() string {
	return fmt.Sprintf("gen %d/actor %d", o.GeneratorID, o.ActorID)
}

// NewRequester creates a Requester. debug may be nil.
func NewRequester(target config.TargetConfig, client *http.Client, debug *DebugLogger) *Requester {
	return &Requester{
		target: target,
		client: client,
		debug:  debug,
	}
}

func (r *Requester) requestFor(mode core.Mode) config.RequestConfig {
	if mode == core.ModeUpdate {
		return r.target.Update
	}
	return r.target.Query
}

// Issue sends one request of the given mode to baseURL and reports the
// outcome as an Event. A request still in flight when ctx ends is marked
// Cutoff rather than failed. Status codes >= 400 are failures.
func (r *Requester) Issue(ctx context.Context, baseURL string, mode core.Mode, from Origin) core.Event {
	start := time.Now()
	ev := core.Event{
		GeneratorID: from.GeneratorID,
		ActorID:     from.ActorID,
		Timestamp:   start,
		Mode:        mode,
	}
	label := from.String()

	req, err := r.build(ctx, baseURL, mode, from)
	if err != nil {
		ev.Duration = time.Since(start)
		ev.Error = err.Error()
		r.debug.LogError(label, ev.Error, ev.Duration)
		return ev
	}

	r.debug.LogRequest(label, req)

	resp, err := r.client.Do(req)
	ev.Duration = time.Since(start)
	ev.BytesSent = req.ContentLength

	if err != nil {
		ev.Cutoff = ctx.Err() != nil
		ev.Error = err.Error()
		r.debug.LogError(label, ev.Error, ev.Duration)
		return ev
	}
	defer resp.Body.Close()

	var body []byte
	if r.debug != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxDebugBodySize))
	}
	n, _ := io.Copy(io.Discard, resp.Body) // drain errors are ignorable
	ev.BytesRecv = int64(len(body)) + n

	ev.StatusCode = resp.StatusCode
	ev.Success = resp.StatusCode < 400
	if !ev.Success {
		ev.Error = resp.Status
	}

	r.debug.LogResponse(label, resp, body, ev.Duration)
	return ev
}

// build renders the request templates for one request.
func (r *Requester) build(ctx context.Context, baseURL string, mode core.Mode, from Origin) (*http.Request, error) {
	rc := r.requestFor(mode)
	vars := make(template.Vars, len(from.Vars)+4)
	maps.Copy(vars, from.Vars)
	vars[template.VarGenerator] = strconv.Itoa(from.GeneratorID)
	vars[template.VarActor] = strconv.Itoa(from.ActorID)
	vars[template.VarSeq] = strconv.FormatInt(r.seq.Add(1), 10)
	vars[template.VarMode] = string(mode)

	path, err := template.Render(rc.Path, vars)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	body, err := template.Render(rc.Body, vars)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, rc.Method, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	for _, headers := range []map[string]string{r.target.Headers, rc.Headers} {
		rendered, err := template.RenderMap(headers, vars)
		if err != nil {
			return nil, err
		}
		for k, v := range rendered {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}
