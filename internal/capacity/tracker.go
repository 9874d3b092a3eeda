// Package capacity tracks the best sustainable throughput seen during a search.
package capacity

import (
	"capsearch/internal/core"
	"capsearch/internal/policy"
)

// Point is one entry of the running-maximum trajectory.
type Point struct {
	Load core.LoadLevel `json:"load"`
	Best float64        `json:"best"`
}

// Record is the capacity state of one search.
type Record struct {
	BestThroughput float64        `json:"bestThroughput"`
	BestLoad       core.LoadLevel `json:"bestLoad"`
	History        []Point        `json:"history"`
}

// Tracker maintains a Record across the rounds of one search.
// A Tracker is NOT safe for concurrent use.
type Tracker struct {
	recording policy.Accepter
	record    Record
}

// NewTracker creates a Tracker that credits rounds accepted by recording.
func NewTracker(recording policy.Accepter) *Tracker {
	return &Tracker{
		recording: recording,
		record:    Record{BestLoad: core.NoLoad, History: make([]Point, 0)},
	}
}

// Consider folds one round into the record. The best throughput moves only if
// the recording policy accepts the round and estimate beats it. The history
// always grows by one point carrying the running best.
func (t *Tracker) Consider(r core.Round, estimate float64) bool {
	updated := false
	if t.recording.Accepts(r) && estimate > t.record.BestThroughput {
		t.record.BestThroughput = estimate
		t.record.BestLoad = r.Load
		updated = true
	}
	t.record.History = append(t.record.History, Point{Load: r.Load, Best: t.record.BestThroughput})
	return updated
}

// Set records estimate as the capacity unconditionally. Used when a single
// load level is measured rather than searched.
func (t *Tracker) Set(r core.Round, estimate float64) {
	t.record.BestThroughput = estimate
	t.record.BestLoad = r.Load
	t.record.History = append(t.record.History, Point{Load: r.Load, Best: estimate})
}

// Best returns the current best throughput and the load that produced it.
func (t *Tracker) Best() (float64, core.LoadLevel) {
	return t.record.BestThroughput, t.record.BestLoad
}

// Record returns a copy of the current record.
func (t *Tracker) Record() Record {
	rec := t.record
	rec.History = make([]Point, len(t.record.History))
	copy(rec.History, t.record.History)
	return rec
}
