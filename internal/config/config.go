// Package config handles YAML configuration parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"time"

	"capsearch/internal/core"
	"capsearch/internal/policy"
	"capsearch/internal/search"
	"capsearch/internal/template"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Target TargetConfig `yaml:"target"`
	Search SearchConfig `yaml:"search"`
	Fleet  FleetConfig  `yaml:"fleet"`
	Report ReportConfig `yaml:"report,omitempty"`
}

// TargetConfig describes the system under test.
type TargetConfig struct {
	URLs    []string          `yaml:"urls"`
	Query   RequestConfig     `yaml:"query"`
	Update  RequestConfig     `yaml:"update"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RequestConfig defines the request issued for one request mode. Path, body
// and header values may contain ${...} placeholders rendered per request.
type RequestConfig struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Body    string            `yaml:"body,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// SearchConfig defines the load sequence and the two threshold policies.
type SearchConfig struct {
	Loads         []int          `yaml:"loads,omitempty"`
	Ramp          *Ramp          `yaml:"ramp,omitempty"`
	RoundDuration time.Duration  `yaml:"roundDuration"`
	Updates       bool           `yaml:"updates"`
	Recording     *policy.Policy `yaml:"recording,omitempty"`
	Continuation  *policy.Policy `yaml:"continuation,omitempty"`
}

// FleetConfig controls the load generators.
type FleetConfig struct {
	Generators         int           `yaml:"generators"`
	ActorsPerGenerator int           `yaml:"actorsPerGenerator"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	Remote             []string      `yaml:"remote,omitempty"`
	Args               []string      `yaml:"args,omitempty"`
}

// ReportConfig controls where progress reports are written.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

const (
	DefaultRoundDuration      = 300 * time.Second
	DefaultGenerators         = 2
	DefaultActorsPerGenerator = 16
	DefaultRequestTimeout     = 10 * time.Second
)

// DefaultRecording returns the recording bounds used when none are configured.
// Update requests are given twice the median latency budget of queries.
func DefaultRecording(updates bool) policy.Policy {
	if updates {
		return policy.Policy{MaxFailureRate: 0.2, MaxMedianLatency: 10 * time.Second}
	}
	return policy.Policy{MaxFailureRate: 0.2, MaxMedianLatency: 5 * time.Second}
}

// DefaultContinuation returns the continuation bounds used when none are
// configured.
func DefaultContinuation(updates bool) policy.Policy {
	if updates {
		return policy.Policy{MaxFailureRate: 0.5, MaxMedianLatency: 20 * time.Second}
	}
	return policy.Policy{MaxFailureRate: 0.5, MaxMedianLatency: 10 * time.Second}
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigWithOverrides(path, Overrides{})
}

// LoadConfigWithOverrides reads a YAML configuration file and applies ov
// before defaults are filled in, so defaults follow the overridden mode.
func LoadConfigWithOverrides(path string, ov Overrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data, ov, true)
}

// LoadAgentConfig reads the configuration of a load generator agent. The
// agent learns its targets from each round, so target.urls may be empty.
func LoadAgentConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return parse(data, Overrides{}, false)
}

// Parse decodes YAML, applies defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	return parse(data, Overrides{}, true)
}

func parse(data []byte, ov Overrides, requireTargets bool) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	ov.Apply(&cfg)
	cfg.ApplyDefaults()
	if requireTargets && len(cfg.Target.URLs) == 0 {
		return nil, errors.New("config: target.urls must list at least one URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Overrides holds command-line values that take precedence over the file.
// Nil and empty fields leave the file value alone.
type Overrides struct {
	Loads         []int
	RoundDuration *time.Duration
	Updates       *bool
}

// Apply copies the set overrides into c.
func (ov Overrides) Apply(c *Config) {
	if len(ov.Loads) > 0 {
		c.Search.Loads = ov.Loads
		c.Search.Ramp = nil
	}
	if ov.RoundDuration != nil {
		c.Search.RoundDuration = *ov.RoundDuration
	}
	if ov.Updates != nil {
		c.Search.Updates = *ov.Updates
	}
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.Target.Query.Method == "" {
		c.Target.Query.Method = "GET"
	}
	if c.Target.Query.Path == "" {
		c.Target.Query.Path = "/"
	}
	if c.Target.Update.Method == "" {
		c.Target.Update.Method = "POST"
	}
	if c.Target.Update.Path == "" {
		c.Target.Update.Path = "/"
	}
	if c.Search.RoundDuration == 0 {
		c.Search.RoundDuration = DefaultRoundDuration
	}
	if c.Search.Recording == nil {
		p := DefaultRecording(c.Search.Updates)
		c.Search.Recording = &p
	}
	if c.Search.Continuation == nil {
		p := DefaultContinuation(c.Search.Updates)
		c.Search.Continuation = &p
	}
	if c.Fleet.Generators == 0 {
		c.Fleet.Generators = DefaultGenerators
	}
	if c.Fleet.ActorsPerGenerator == 0 {
		c.Fleet.ActorsPerGenerator = DefaultActorsPerGenerator
	}
	if c.Fleet.RequestTimeout == 0 {
		c.Fleet.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate checks the parts of the file the search driver does not check
// itself. Load levels and bounds are validated by search.Config. An empty
// target.urls is accepted here; LoadConfig requires it.
func (c *Config) Validate() error {
	ga, err := ParseGeneratorArgs(c.Fleet.Args)
	if err != nil {
		return fmt.Errorf("config: fleet.args: %w", err)
	}
	extra := ga.VarNames()
	for i, raw := range c.Target.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: target.urls[%d]: %q is not an absolute URL", i, raw)
		}
	}
	for i, raw := range c.Fleet.Remote {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: fleet.remote[%d]: %q is not an absolute URL", i, raw)
		}
	}
	for name, rc := range map[string]RequestConfig{"query": c.Target.Query, "update": c.Target.Update} {
		if err := rc.check(extra); err != nil {
			return fmt.Errorf("config: target.%s: %w", name, err)
		}
	}
	for k, v := range c.Target.Headers {
		if err := template.Check(v, extra...); err != nil {
			return fmt.Errorf("config: target.headers[%s]: %w", k, err)
		}
	}
	if len(c.Search.Loads) > 0 && c.Search.Ramp != nil {
		return errors.New("config: search.loads and search.ramp are mutually exclusive")
	}
	if c.Search.Ramp != nil {
		if _, err := c.Search.Ramp.Levels(); err != nil {
			return fmt.Errorf("config: search.ramp: %w", err)
		}
	}
	if c.Fleet.Generators < 0 || c.Fleet.ActorsPerGenerator < 0 {
		return errors.New("config: fleet.generators and fleet.actorsPerGenerator must not be negative")
	}
	if c.Fleet.RequestTimeout < 0 {
		return errors.New("config: fleet.requestTimeout must not be negative")
	}
	return nil
}

// check verifies the placeholders of a request.
func (r RequestConfig) check(extra []string) error {
	if err := template.Check(r.Path, extra...); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	if err := template.Check(r.Body, extra...); err != nil {
		return fmt.Errorf("body: %w", err)
	}
	for k, v := range r.Headers {
		if err := template.Check(v, extra...); err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
	}
	return nil
}

// LoadLevels returns the configured load sequence.
func (s SearchConfig) LoadLevels() ([]core.LoadLevel, error) {
	if s.Ramp != nil {
		return s.Ramp.Levels()
	}
	levels := make([]core.LoadLevel, len(s.Loads))
	for i, l := range s.Loads {
		levels[i] = core.LoadLevel(l)
	}
	return levels, nil
}

// SearchConfig builds the driver configuration. Remote generators receive
// the fleet args with every round.
func (c *Config) SearchConfig() (search.Config, error) {
	loads, err := c.Search.LoadLevels()
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		Loads:         loads,
		RoundDuration: c.Search.RoundDuration,
		Recording:     *c.Search.Recording,
		Continuation:  *c.Search.Continuation,
		Updates:       c.Search.Updates,
		Targets:       c.Target.URLs,
		Args:          c.Fleet.Args,
	}, nil
}

// Ramp generates an increasing load sequence from Start up to End, either
// linearly by Step or geometrically by Factor.
type Ramp struct {
	Start  int     `yaml:"start"`
	End    int     `yaml:"end"`
	Step   int     `yaml:"step,omitempty"`
	Factor float64 `yaml:"factor,omitempty"`
}

const (
	// MaxRampEnd bounds the highest load a ramp may reach, in requests/s.
	MaxRampEnd = 10_000_000
	// MaxRampLevels bounds the number of rounds a ramp may expand to.
	MaxRampLevels = 10_000
)

// Levels expands the ramp.
func (r Ramp) Levels() ([]core.LoadLevel, error) {
	if r.Start <= 0 {
		return nil, fmt.Errorf("start must be positive, got %d", r.Start)
	}
	if r.End < r.Start {
		return nil, fmt.Errorf("end %d is below start %d", r.End, r.Start)
	}
	if r.End > MaxRampEnd {
		return nil, fmt.Errorf("end %d exceeds the maximum of %d", r.End, MaxRampEnd)
	}

	switch {
	case r.Step > 0 && r.Factor == 0:
		n := (r.End-r.Start)/r.Step + 1
		if n > MaxRampLevels {
			return nil, fmt.Errorf("ramp expands to %d levels, more than %d", n, MaxRampLevels)
		}
		levels := make([]core.LoadLevel, 0, n)
		for l := r.Start; l <= r.End; l += r.Step {
			levels = append(levels, core.LoadLevel(l))
		}
		return levels, nil
	case r.Factor > 1 && r.Step == 0:
		levels := []core.LoadLevel{core.LoadLevel(r.Start)}
		cur := float64(r.Start)
		for {
			cur *= r.Factor
			next := int(math.Ceil(cur))
			if last := int(levels[len(levels)-1]); next <= last {
				next = last + 1
				cur = float64(next)
			}
			if next > r.End {
				break
			}
			if len(levels) == MaxRampLevels {
				return nil, fmt.Errorf("ramp expands to more than %d levels", MaxRampLevels)
			}
			levels = append(levels, core.LoadLevel(next))
		}
		return levels, nil
	default:
		return nil, errors.New("exactly one of step (> 0) or factor (> 1) must be set")
	}
}
