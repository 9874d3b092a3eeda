// Package collector gathers request events from a load generator and reduces
// them to per-generator summaries and per-round aggregates.
package collector

import (
	"sync"

	"capsearch/internal/core"
)

// Collector accumulates the events of one generator during one round.
type Collector struct {
	events []core.Event
	ch     chan core.Event
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewCollector creates a new Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		events: make([]core.Event, 0),
		ch:     make(chan core.Event, 1000),
		done:   make(chan struct{}),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report sends an event to the collector. Thread-safe. Report blocks when the
// buffer is full so no request goes uncounted; it must not be called after
// Close.
func (c *Collector) Report(event core.Event) {
	c.ch <- event
}

// Close stops accepting events and waits until all buffered events are stored.
// Close is idempotent.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.ch)
	<-c.done
}

// Events returns a copy of collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}
