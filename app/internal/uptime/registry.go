package uptime

import (
	"log"
	"sync"
	"time"
)

// Registry owns the live aggregators, one per monitor. It replaces an ad hoc
// package-global map so that the process controls creation, lookup and
// eviction when a monitor is deleted.
type Registry struct {
	mu   sync.Mutex
	aggs map[int64]*Aggregator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{aggs: make(map[int64]*Aggregator)}
}

// For returns the aggregator for a monitor, creating and warming it from the
// persisted buckets on first use. A failed warm still yields a usable
// aggregator with empty windows.
func (r *Registry) For(monitorID int64) *Aggregator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.aggs[monitorID]; ok {
		return a
	}

	a := newAggregator(monitorID)
	if err := a.warm(time.Now()); err != nil {
		log.Printf("Warning: %v", err)
	}
	r.aggs[monitorID] = a
	return a
}

// Remove evicts a monitor's aggregator, e.g. when the monitor is deleted.
func (r *Registry) Remove(monitorID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aggs, monitorID)
}

// Len returns the number of live aggregators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.aggs)
}
