// Package dispatcher implements the server-side per-tick selection of which
// (entity, component-kind) pairs to transmit to each client under a fixed
// MTU budget: bin-packing the InterestQueue, grouping declared dependencies
// atomically, and recording what was sent into the UnackedLedger for resend
// (spec.md §4.4).
package dispatcher

import (
	"replicore/ids"
	"replicore/interest"
	"replicore/tick"
)

// DefaultMTU is the spec's default per-message budget in bytes.
const DefaultMTU = 1500

// MinSlackBytes is the "meaningful slack" threshold below which the
// dispatcher stops trying lower-priority candidates instead of continuing
// to search for something smaller that fits (spec.md §4.4 step 2d).
const MinSlackBytes = 30

// Requires declares, per ComponentKind, the other kinds that must be sent
// atomically alongside it whenever it is sent (co-send dependencies).
type Requires map[ids.ComponentKind][]ids.ComponentKind

// Dispatcher selects, per client per tick, which queued interests fit under
// the MTU budget.
type Dispatcher struct {
	MTU       int
	Requires  Requires
	Estimator *SizeEstimator
	Ledger    *Ledger
}

// New returns a Dispatcher with the spec's default MTU.
func New(requires Requires, estimator *SizeEstimator, ledger *Ledger) *Dispatcher {
	return &Dispatcher{
		MTU:       DefaultMTU,
		Requires:  requires,
		Estimator: estimator,
		Ledger:    ledger,
	}
}

// group expands kind into {kind} ∪ Requires[kind], each paired with
// entity, de-duplicated.
func (d *Dispatcher) group(entity ids.StableId, kind ids.ComponentKind) []interest.Interest {
	group := []interest.Interest{{Entity: entity, Kind: kind}}
	seen := map[ids.ComponentKind]bool{kind: true}
	for _, rk := range d.Requires[kind] {
		if seen[rk] {
			continue
		}
		seen[rk] = true
		group = append(group, interest.Interest{Entity: entity, Kind: rk})
	}
	return group
}

func (d *Dispatcher) estimateGroup(group []interest.Interest) int {
	total := 0
	for _, g := range group {
		total += d.Estimator.Estimate(g.Kind)
	}
	return total
}

// SelectForClient runs one tick of the bin-packing algorithm against the
// client's InterestQueue, returning the ordered, deduplicated list of
// Interests to transmit this tick. Anything that did not fit is pushed back
// onto the front of the queue, in an order that preserves its standing
// relative to what remains, and the sent list is recorded into the Ledger.
func (d *Dispatcher) SelectForClient(client ids.ClientId, t tick.Tick, queue *interest.Queue) []interest.Interest {
	used := 0
	var unsent []interest.Interest
	var outgoing []interest.Interest
	sent := map[interest.Interest]bool{}

	for queue.Len() > 0 {
		x, ok := queue.PopFront()
		if !ok {
			break
		}
		group := d.group(x.Entity, x.Kind)
		for _, g := range group {
			if g != x {
				queue.Remove(g) // dependency may also be independently queued
			}
		}
		est := d.estimateGroup(group)

		if used+est > d.MTU {
			if d.MTU-used > MinSlackBytes {
				// Meaningful slack remains: skip this candidate and keep
				// trying smaller ones that might still fit.
				unsent = append(unsent, x)
				continue
			}
			// Not enough slack to bother continuing: this candidate goes
			// back to the front next tick and we stop for this one.
			unsent = append(unsent, x)
			break
		}

		for _, g := range group {
			if !sent[g] {
				sent[g] = true
				outgoing = append(outgoing, g)
			}
		}
		used += est
	}

	// push_front in reverse so relative order among the unsent survives.
	for i := len(unsent) - 1; i >= 0; i-- {
		queue.PushFront(unsent[i])
	}

	if len(outgoing) > 0 {
		d.Ledger.Record(client, t, outgoing)
	}
	return outgoing
}
