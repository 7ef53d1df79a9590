package dispatcher

import (
	"replicore/ids"
	"replicore/interest"
	"replicore/registry"
	"replicore/tick"
)

// Clients abstracts the set of connected clients and their per-client
// queue/baseload state, so the producers below don't need to know how
// sessions are tracked.
type Clients interface {
	// Each calls fn once per currently-connected client.
	Each(fn func(client ids.ClientId, queue *interest.Queue))
	// NeedsBaseload reports whether client still has the baseload flag set.
	NeedsBaseload(client ids.ClientId) bool
	// ClearBaseload clears the flag after one full sweep completes
	// (spec.md §9: the one-shot interpretation of the ambiguous source).
	ClearBaseload(client ids.ClientId)
}

// RunChangeDetection implements spec.md §4.5's per-ComponentKind change
// detector: for every entity whose value of kind changed since the last
// check, push_back (entity, kind) onto every connected client's queue.
func RunChangeDetection(kind ids.ComponentKind, desc *registry.Descriptor, clients Clients) {
	changed := desc.CollectChanged()
	if len(changed) == 0 {
		return
	}
	clients.Each(func(client ids.ClientId, queue *interest.Queue) {
		for _, entity := range changed {
			queue.PushBack(interest.Interest{Entity: entity, Kind: kind})
		}
	})
}

// RunBaseload implements spec.md §4.5's baseload producer: while a client's
// baseload flag is set, push_back (entity, kind) for every entity carrying
// kind. The flag is cleared once this sweep has run for every registered
// kind in a tick (see ClearBaseload caller in the replication pipeline),
// resolving the spec's §9 open question in favor of the one-shot behavior.
func RunBaseload(kind ids.ComponentKind, desc *registry.Descriptor, clients Clients) {
	var all []ids.StableId
	for entity := range desc.Snapshot() {
		all = append(all, entity)
	}
	if len(all) == 0 {
		return
	}
	clients.Each(func(client ids.ClientId, queue *interest.Queue) {
		if !clients.NeedsBaseload(client) {
			return
		}
		for _, entity := range all {
			queue.PushBack(interest.Interest{Entity: entity, Kind: kind})
		}
	})
}

// RunResend implements spec.md §4.5's resend producer: for each client,
// drain every Interest still in the UnackedLedger within the resend
// horizon and push_front it back onto that client's queue.
func RunResend(ledger *Ledger, now tick.Tick, clients Clients) {
	clients.Each(func(client ids.ClientId, queue *interest.Queue) {
		pending := ledger.DrainForResend(client, now)
		for _, x := range pending {
			queue.PushFront(x)
		}
	})
}
