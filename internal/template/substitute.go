// Package template renders the per-request placeholders in request paths,
// bodies and headers, so every request a generator issues can carry its own
// key or payload.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Vars holds the per-request variables.
type Vars map[string]string

// Variables every request provides.
const (
	VarGenerator = "generator"
	VarActor     = "actor"
	VarSeq       = "seq"
	VarMode      = "mode"
)

var knownVars = []string{VarGenerator, VarActor, VarSeq, VarMode}

// varPattern matches ${var}, ${env:VAR} and ${fn(args)} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// HasPlaceholders reports whether text needs rendering.
func HasPlaceholders(text string) bool {
	return strings.Contains(text, "${")
}

// Render replaces the placeholders in text. All failures are joined into
// one error.
func Render(text string, vars Vars) (string, error) {
	if !HasPlaceholders(text) {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		val, err := resolve(match[2:len(match)-1], vars)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return val
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

func resolve(name string, vars Vars) (string, error) {
	if envName, ok := strings.CutPrefix(name, "env:"); ok {
		if val, ok := os.LookupEnv(envName); ok {
			return val, nil
		}
		return "", fmt.Errorf("env var %q not set", envName)
	}
	if val, isCall, err := evalFunction(name); isCall {
		return val, err
	}
	if val, ok := vars[name]; ok {
		return val, nil
	}
	return "", fmt.Errorf("variable %q not found", name)
}

// RenderMap renders every value of m.
func RenderMap(m map[string]string, vars Vars) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		rendered, err := Render(v, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("header %q: %w", k, err))
			continue
		}
		result[k] = rendered
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// Check renders text against placeholder values for the request variables
// and the extra variable names, reporting unknown variables, functions with
// bad arguments and unset environment variables before any load is generated.
func Check(text string, extra ...string) error {
	vars := make(Vars, len(knownVars)+len(extra))
	for _, v := range append(extra, knownVars...) {
		vars[v] = "0"
	}
	_, err := Render(text, vars)
	return err
}
