// Package snapshot implements the bounded per-component-kind history ring
// used to restore state at a rewind target.
package snapshot

import (
	"replicore/ids"
	"replicore/tick"
)

// Horizon bounds how many distinct ticks a Ring retains.
const Horizon = 32

// Ring is a bounded history of component values, one map[StableId]C per
// tick, keyed by Tick. On insert, entries older than newest-(Horizon-1) are
// evicted so the ring never spans more than Horizon ticks.
type Ring[C any] struct {
	entries map[tick.Tick]map[ids.StableId]C
	newest  tick.Tick
	hasAny  bool
}

// NewRing returns an empty snapshot ring.
func NewRing[C any]() *Ring[C] {
	return &Ring[C]{entries: make(map[tick.Tick]map[ids.StableId]C)}
}

// Push records values for tick t, replacing any prior entry at t, then
// evicts anything older than newest-(Horizon-1).
func (r *Ring[C]) Push(t tick.Tick, values map[ids.StableId]C) {
	r.entries[t] = values
	if !r.hasAny || t > r.newest {
		r.newest = t
		r.hasAny = true
	}
	r.evict()
}

// Set records (or updates) a single entity's value at tick t, creating the
// per-tick map if needed.
func (r *Ring[C]) Set(t tick.Tick, id ids.StableId, value C) {
	m, ok := r.entries[t]
	if !ok {
		m = make(map[ids.StableId]C)
		r.entries[t] = m
	}
	m[id] = value
	if !r.hasAny || t > r.newest {
		r.newest = t
		r.hasAny = true
	}
	r.evict()
}

func (r *Ring[C]) evict() {
	if !r.hasAny {
		return
	}
	floor := r.newest - (Horizon - 1)
	if r.newest < Horizon-1 {
		floor = 0
	}
	for t := range r.entries {
		if t < floor {
			delete(r.entries, t)
		}
	}
}

// At returns the full per-entity snapshot recorded for tick t, if any.
func (r *Ring[C]) At(t tick.Tick) (map[ids.StableId]C, bool) {
	m, ok := r.entries[t]
	return m, ok
}

// Oldest returns the oldest tick currently retained, and whether the ring
// is non-empty.
func (r *Ring[C]) Oldest() (tick.Tick, bool) {
	if len(r.entries) == 0 {
		return 0, false
	}
	oldest := r.newest
	for t := range r.entries {
		if t < oldest {
			oldest = t
		}
	}
	return oldest, true
}

// Len reports how many distinct ticks are currently retained.
func (r *Ring[C]) Len() int { return len(r.entries) }
