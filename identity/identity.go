// Package identity implements the client-side map from server-assigned
// StableId to local object handle, with host callbacks for spawn/despawn.
package identity

import "replicore/ids"

// Handle is an opaque local object reference supplied by the host ECS.
type Handle any

// SpawnFunc asks the host to allocate a local object for a newly-seen
// StableId.
type SpawnFunc func(id ids.StableId) Handle

// DespawnFunc asks the host to destroy a local object.
type DespawnFunc func(h Handle)

// IsLiveFunc reports whether the host still considers h alive.
type IsLiveFunc func(h Handle) bool

// Map is a bidirectional-style StableId <-> Handle association. A StableId
// appears in at most one entry at a time (spec.md §3 invariant).
type Map struct {
	byID     map[ids.StableId]Handle
	byHandle map[Handle]ids.StableId
	spawn    SpawnFunc
	despawn  DespawnFunc
	isLive   IsLiveFunc
}

// New returns an empty identity map wired to the host's spawn/despawn/
// is-live callbacks.
func New(spawn SpawnFunc, despawn DespawnFunc, isLive IsLiveFunc) *Map {
	return &Map{
		byID:     make(map[ids.StableId]Handle),
		byHandle: make(map[Handle]ids.StableId),
		spawn:    spawn,
		despawn:  despawn,
		isLive:   isLive,
	}
}

// Resolve returns the handle already associated with id, if any.
func (m *Map) Resolve(id ids.StableId) (Handle, bool) {
	h, ok := m.byID[id]
	return h, ok
}

// ResolveOrSpawn returns the existing handle for id, or asks the host to
// allocate one, records the association and returns it.
func (m *Map) ResolveOrSpawn(id ids.StableId) Handle {
	if h, ok := m.byID[id]; ok {
		return h
	}
	h := m.spawn(id)
	m.byID[id] = h
	m.byHandle[h] = id
	return h
}

// StableIdOf returns the StableId associated with a local handle, if any.
func (m *Map) StableIdOf(h Handle) (ids.StableId, bool) {
	id, ok := m.byHandle[h]
	return id, ok
}

// Clean drops entries whose handle the host has already destroyed, as
// determined by isLive. Called periodically so the map does not accumulate
// references to dead host objects the core was never told to despawn.
func (m *Map) Clean() {
	for h, id := range m.byHandle {
		if !m.isLive(h) {
			delete(m.byHandle, h)
			delete(m.byID, id)
		}
	}
}

// Despawn removes a single entity's association and asks the host to
// destroy its local handle.
func (m *Map) Despawn(id ids.StableId) {
	h, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	delete(m.byHandle, h)
	m.despawn(h)
}

// Disconnect despawns everything and empties the map, for use when the
// transport reports a disconnect.
func (m *Map) Disconnect() {
	for h := range m.byHandle {
		m.despawn(h)
	}
	m.byID = make(map[ids.StableId]Handle)
	m.byHandle = make(map[Handle]ids.StableId)
}

// Len reports how many entities are currently tracked.
func (m *Map) Len() int { return len(m.byID) }
