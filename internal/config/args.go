package config

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// GeneratorArgs are the per-round options carried in fleet.args. Every
// generator parses them, local or remote.
type GeneratorArgs struct {
	// Actors overrides fleet.actorsPerGenerator for the round when positive.
	Actors int
	// Vars are extra ${name} values for request templates.
	Vars map[string]string
}

type varsFlag map[string]string

func (v varsFlag) String() string {
	pairs := make([]string, 0, len(v))
	for k, val := range v {
		pairs = append(pairs, k+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (v varsFlag) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=value, got %q", s)
	}
	v[name] = val
	return nil
}

// ParseGeneratorArgs parses fleet.args:
//
//	-actors N          actors for this round
//	-var name=value    template variable, repeatable
func ParseGeneratorArgs(args []string) (GeneratorArgs, error) {
	ga := GeneratorArgs{Vars: make(map[string]string)}

	fs := flag.NewFlagSet("generator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&ga.Actors, "actors", 0, "actors for this round")
	fs.Var(varsFlag(ga.Vars), "var", "template variable name=value")
	if err := fs.Parse(args); err != nil {
		return GeneratorArgs{}, fmt.Errorf("generator args: %w", err)
	}
	if fs.NArg() > 0 {
		return GeneratorArgs{}, fmt.Errorf("generator args: unexpected argument %q", fs.Arg(0))
	}
	if ga.Actors < 0 {
		return GeneratorArgs{}, fmt.Errorf("generator args: -actors must not be negative, got %d", ga.Actors)
	}
	return ga, nil
}

// VarNames returns the names of the template variables in sorted order.
func (ga GeneratorArgs) VarNames() []string {
	return slices.Sorted(maps.Keys(ga.Vars))
}
