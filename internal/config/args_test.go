package config

import (
	"strings"
	"testing"
)

func TestParseGeneratorArgs(t *testing.T) {
	ga, err := ParseGeneratorArgs([]string{"-actors", "3", "-var", "tenant=acme", "--var=region=eu-1"})
	if err != nil {
		t.Fatal(err)
	}
	if ga.Actors != 3 {
		t.Errorf("expected 3 actors, got %d", ga.Actors)
	}
	if ga.Vars["tenant"] != "acme" || ga.Vars["region"] != "eu-1" {
		t.Errorf("unexpected vars %v", ga.Vars)
	}
}

func TestParseGeneratorArgs_Empty(t *testing.T) {
	ga, err := ParseGeneratorArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if ga.Actors != 0 || len(ga.Vars) != 0 {
		t.Errorf("expected zero args, got %+v", ga)
	}
}

func TestParseGeneratorArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-payload", "64"}, "payload"},
		{"bad var", []string{"-var", "novalue"}, "name=value"},
		{"negative actors", []string{"-actors", "-1"}, "must not be negative"},
		{"positional", []string{"extra"}, "unexpected argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeneratorArgs(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
