package core

import (
	"testing"
	"time"
)

func TestRound_Throughput(t *testing.T) {
	tests := []struct {
		name     string
		round    Round
		expected float64
	}{
		{"900 over 300s", Round{NumSuccess: 900, Duration: 300 * time.Second}, 3.0},
		{"zero duration", Round{NumSuccess: 900}, 0},
		{"negative duration", Round{NumSuccess: 900, Duration: -time.Second}, 0},
		{"no successes", Round{Duration: 10 * time.Second}, 0},
		{"sub-second", Round{NumSuccess: 5, Duration: 500 * time.Millisecond}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.round.Throughput(); got != tt.expected {
				t.Errorf("Throughput() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestRound_SuccessRate(t *testing.T) {
	if got := (Round{}).SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() with no requests = %v, expected 0", got)
	}
	r := Round{TotalRequests: 10, NumSuccess: 7, NumFailure: 2}
	if got := r.SuccessRate(); got != 0.7 {
		t.Errorf("SuccessRate() = %v, expected 0.7", got)
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(true) != ModeUpdate {
		t.Error("ModeFor(true) should be update")
	}
	if ModeFor(false) != ModeQuery {
		t.Error("ModeFor(false) should be query")
	}
}
