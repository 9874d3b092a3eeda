package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capsearch/internal/core"
)

func TestLoadConfig_Full(t *testing.T) {
	content := `
target:
  urls: ["http://node-1:8080", "http://node-2:8080"]
  query:
    method: GET
    path: /api/read
  update:
    method: PUT
    path: /api/write/${tenant}
    body: '{"counter": 1}'
  headers:
    X-Bench: "yes"
search:
  loads: [50, 100, 200]
  roundDuration: 30s
  updates: true
  recording:
    maxFailureRate: 0.1
    maxMedianLatency: 2s
  continuation:
    maxFailureRate: 0.4
    maxMedianLatency: 8s
fleet:
  generators: 4
  actorsPerGenerator: 32
  requestTimeout: 5s
  remote: ["http://gen-1:9090"]
  args: ["-actors", "8", "-var", "tenant=acme"]
report:
  dir: ./results
`
	cfg := loadConfigFromString(t, content)

	if len(cfg.Target.URLs) != 2 {
		t.Fatalf("expected 2 target URLs, got %d", len(cfg.Target.URLs))
	}
	if cfg.Target.Update.Method != "PUT" || cfg.Target.Update.Path != "/api/write/${tenant}" {
		t.Errorf("unexpected update request %+v", cfg.Target.Update)
	}
	if cfg.Target.Update.Body != `{"counter": 1}` {
		t.Errorf("unexpected update body %q", cfg.Target.Update.Body)
	}
	if cfg.Target.Headers["X-Bench"] != "yes" {
		t.Errorf("expected X-Bench header, got %v", cfg.Target.Headers)
	}
	if cfg.Search.RoundDuration != 30*time.Second {
		t.Errorf("expected 30s round, got %v", cfg.Search.RoundDuration)
	}
	if cfg.Search.Recording.MaxFailureRate != 0.1 || cfg.Search.Recording.MaxMedianLatency != 2*time.Second {
		t.Errorf("unexpected recording policy %+v", cfg.Search.Recording)
	}
	if cfg.Search.Continuation.MaxFailureRate != 0.4 || cfg.Search.Continuation.MaxMedianLatency != 8*time.Second {
		t.Errorf("unexpected continuation policy %+v", cfg.Search.Continuation)
	}
	if cfg.Fleet.Generators != 4 || cfg.Fleet.ActorsPerGenerator != 32 || cfg.Fleet.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected fleet %+v", cfg.Fleet)
	}
	if cfg.Report.Dir != "./results" {
		t.Errorf("expected report dir, got %q", cfg.Report.Dir)
	}

	sc, err := cfg.SearchConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Loads) != 3 || sc.Loads[2] != 200 {
		t.Errorf("unexpected loads %v", sc.Loads)
	}
	if sc.Mode() != core.ModeUpdate {
		t.Errorf("expected update mode, got %q", sc.Mode())
	}
	if len(sc.Args) != 4 || len(sc.Targets) != 2 {
		t.Errorf("args/targets not carried: %+v", sc)
	}
	if err := sc.Validate(); err != nil {
		t.Errorf("search config should be valid: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfigFromString(t, `
target:
  urls: ["http://localhost:8080"]
search:
  loads: [10]
`)

	if cfg.Target.Query.Method != "GET" || cfg.Target.Update.Method != "POST" {
		t.Errorf("unexpected default methods %q/%q", cfg.Target.Query.Method, cfg.Target.Update.Method)
	}
	if cfg.Search.RoundDuration != DefaultRoundDuration {
		t.Errorf("expected default round duration, got %v", cfg.Search.RoundDuration)
	}
	if *cfg.Search.Recording != DefaultRecording(false) {
		t.Errorf("expected default recording policy, got %+v", cfg.Search.Recording)
	}
	if *cfg.Search.Continuation != DefaultContinuation(false) {
		t.Errorf("expected default continuation policy, got %+v", cfg.Search.Continuation)
	}
	if cfg.Fleet.Generators != DefaultGenerators || cfg.Fleet.ActorsPerGenerator != DefaultActorsPerGenerator {
		t.Errorf("unexpected fleet defaults %+v", cfg.Fleet)
	}
}

func TestLoadConfig_UpdateDefaultsAreLooser(t *testing.T) {
	cfg := loadConfigFromString(t, `
target:
  urls: ["http://localhost:8080"]
search:
  loads: [10]
  updates: true
`)
	if cfg.Search.Recording.MaxMedianLatency != 10*time.Second {
		t.Errorf("expected 10s update recording latency, got %v", cfg.Search.Recording.MaxMedianLatency)
	}
	if cfg.Search.Continuation.MaxMedianLatency != 20*time.Second {
		t.Errorf("expected 20s update continuation latency, got %v", cfg.Search.Continuation.MaxMedianLatency)
	}
}

func TestLoadConfig_Ramp(t *testing.T) {
	cfg := loadConfigFromString(t, `
target:
  urls: ["http://localhost:8080"]
search:
  ramp: {start: 100, end: 500, step: 100}
`)
	loads, err := cfg.Search.LoadLevels()
	if err != nil {
		t.Fatal(err)
	}
	expected := []core.LoadLevel{100, 200, 300, 400, 500}
	if len(loads) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, loads)
	}
	for i := range expected {
		if loads[i] != expected[i] {
			t.Errorf("loads[%d] = %d, expected %d", i, loads[i], expected[i])
		}
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no targets", "search:\n  loads: [1]\n", "target.urls"},
		{"relative target", "target:\n  urls: [\"localhost\"]\n", "absolute URL"},
		{"bad remote", "target:\n  urls: [\"http://a\"]\nfleet:\n  remote: [\"gen\"]\n", "fleet.remote"},
		{"unknown key", "target:\n  urls: [\"http://a\"]\n  bogus: 1\n", "parsing config file"},
		{"loads and ramp", "target:\n  urls: [\"http://a\"]\nsearch:\n  loads: [1]\n  ramp: {start: 1, end: 2, step: 1}\n", "mutually exclusive"},
		{"overflowing ramp", "target:\n  urls: [\"http://a\"]\nsearch:\n  ramp: {start: 1, end: 9223372036854775807, step: 4611686018427387903}\n", "exceeds the maximum"},
		{"bad ramp", "target:\n  urls: [\"http://a\"]\nsearch:\n  ramp: {start: 0, end: 2, step: 1}\n", "search.ramp"},
		{"negative generators", "target:\n  urls: [\"http://a\"]\nfleet:\n  generators: -1\n", "fleet.generators"},
		{"invalid yaml", "target: [", "parsing config file"},
		{"unknown placeholder", "target:\n  urls: [\"http://a\"]\n  update: {path: \"/kv/${key}\"}\n", "target.update: path"},
		{"bad fleet args", "target:\n  urls: [\"http://a\"]\nfleet:\n  args: [\"--payload\", \"64\"]\n", "fleet.args"},
		{"undeclared template var", "target:\n  urls: [\"http://a\"]\n  query: {path: \"/t/${tenant}\"}\nfleet:\n  args: [\"-var\", \"region=eu\"]\n", "target.query: path"},
		{"bad header function", "target:\n  urls: [\"http://a\"]\n  headers: {X-Id: \"${random(1)}\"}\n", "target.headers[X-Id]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadAgentConfig_NoTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := "target:\n  query: {path: \"/read/${seq}\"}\nfleet:\n  actorsPerGenerator: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("agent config without targets should load: %v", err)
	}
	if cfg.Fleet.ActorsPerGenerator != 4 {
		t.Errorf("expected 4 actors, got %d", cfg.Fleet.ActorsPerGenerator)
	}

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "target.urls") {
		t.Errorf("search config without targets should fail, got %v", err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRamp_Levels(t *testing.T) {
	tests := []struct {
		name     string
		ramp     Ramp
		expected []core.LoadLevel
		wantErr  bool
	}{
		{"linear", Ramp{Start: 10, End: 35, Step: 10}, []core.LoadLevel{10, 20, 30}, false},
		{"single", Ramp{Start: 10, End: 10, Step: 5}, []core.LoadLevel{10}, false},
		{"geometric", Ramp{Start: 50, End: 500, Factor: 2}, []core.LoadLevel{50, 100, 200, 400}, false},
		{"geometric strictly increasing", Ramp{Start: 1, End: 4, Factor: 1.1}, []core.LoadLevel{1, 2, 3, 4}, false},
		{"zero start", Ramp{Start: 0, End: 10, Step: 1}, nil, true},
		{"end below start", Ramp{Start: 10, End: 5, Step: 1}, nil, true},
		{"neither", Ramp{Start: 1, End: 5}, nil, true},
		{"both", Ramp{Start: 1, End: 5, Step: 1, Factor: 2}, nil, true},
		{"factor too small", Ramp{Start: 1, End: 5, Factor: 1}, nil, true},
		{"end near max int", Ramp{Start: 1, End: math.MaxInt, Step: math.MaxInt / 2}, nil, true},
		{"end above bound", Ramp{Start: 1, End: MaxRampEnd + 1, Step: MaxRampEnd}, nil, true},
		{"too many linear levels", Ramp{Start: 1, End: MaxRampLevels + 1, Step: 1}, nil, true},
		{"too many geometric levels", Ramp{Start: 1, End: MaxRampEnd, Factor: 1.0001}, nil, true},
		{"at level bound", Ramp{Start: 1, End: MaxRampLevels, Step: MaxRampLevels - 1}, []core.LoadLevel{1, MaxRampLevels}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ramp.Levels()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %v, got %v", tt.expected, got)
					break
				}
			}
		})
	}
}

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	tmpFile := createTempFile(t, content)
	defer os.Remove(tmpFile)

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return tmpFile
}

func TestLoadConfigWithOverrides(t *testing.T) {
	path := createTempFile(t, `
target:
  urls: ["http://localhost:8080"]
search:
  ramp: {start: 10, end: 30, step: 10}
  roundDuration: 1m
`)
	d := 5 * time.Second
	updates := true
	cfg, err := LoadConfigWithOverrides(path, Overrides{Loads: []int{7}, RoundDuration: &d, Updates: &updates})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Search.Ramp != nil || len(cfg.Search.Loads) != 1 || cfg.Search.Loads[0] != 7 {
		t.Errorf("loads override should replace the ramp, got %+v", cfg.Search)
	}
	if cfg.Search.RoundDuration != 5*time.Second {
		t.Errorf("expected 5s rounds, got %v", cfg.Search.RoundDuration)
	}
	if *cfg.Search.Continuation != DefaultContinuation(true) {
		t.Errorf("defaults should follow the overridden mode, got %+v", cfg.Search.Continuation)
	}
}

func TestOverrides_EmptyKeepsFile(t *testing.T) {
	cfg := Config{Search: SearchConfig{Loads: []int{1, 2}, RoundDuration: time.Minute, Updates: true}}
	Overrides{}.Apply(&cfg)

	if len(cfg.Search.Loads) != 2 || cfg.Search.RoundDuration != time.Minute || !cfg.Search.Updates {
		t.Errorf("empty overrides changed the config: %+v", cfg.Search)
	}
}
