package main

import (
	"sync"

	"replicore/identity"
	"replicore/ids"
)

// localEntities is a minimal in-memory stand-in for a host ECS's entity
// lifecycle (replicore/host.Entities / identity's spawn-despawn-is-live
// callbacks): enough to give identity.Map a real implementation to drive
// without an actual game engine behind it. A real client supplies its own.
type localEntities struct {
	mu   sync.Mutex
	live map[ids.StableId]bool
}

func newLocalEntities() *localEntities {
	return &localEntities{live: make(map[ids.StableId]bool)}
}

func (e *localEntities) spawn(id ids.StableId) identity.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[id] = true
	return id
}

func (e *localEntities) despawn(h identity.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := h.(ids.StableId); ok {
		delete(e.live, id)
	}
}

func (e *localEntities) isLive(h identity.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := h.(ids.StableId)
	return ok && e.live[id]
}
