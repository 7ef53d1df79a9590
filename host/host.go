// Package host defines the contract between the replication core and the
// host's entity/component store. The host ECS itself — spawn/despawn,
// component storage, querying — is out of scope (spec.md §1); this package
// only names the callbacks the core consumes.
package host

import "replicore/ids"

// Handle is an opaque reference to a host-owned entity.
type Handle any

// Store is implemented by the host for one ComponentKind C. The core never
// reaches into host storage directly; every access goes through these
// methods so the host remains free to use whatever ECS representation it
// likes.
type Store[C any] interface {
	// EntitiesWith iterates every (handle, value) pair currently carrying C.
	EntitiesWith(yield func(h Handle, c C) bool)
	// Changed iterates handles whose C changed since the last call.
	Changed(yield func(h Handle) bool)
	// Get returns the current value of C on h, if present.
	Get(h Handle) (C, bool)
	// InsertOrUpdate writes c onto h, inserting the component if absent.
	InsertOrUpdate(h Handle, c C)
	// Remove deletes C from h, if present.
	Remove(h Handle)
}

// Entities is implemented by the host for entity lifecycle, independent of
// any single component kind.
type Entities interface {
	// SpawnWithStableId allocates a new host entity bound to id.
	SpawnWithStableId(id ids.StableId) Handle
	// Despawn destroys h.
	Despawn(h Handle)
	// IsLive reports whether h still refers to a live host entity.
	IsLive(h Handle) bool
}
