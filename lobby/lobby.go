// Package lobby tracks which host entity a connected client is currently
// controlling: the server-side map the input-apply step consults to know
// whose handle a ClientInputMessage's input belongs to (spec.md §4.8,
// supplemented from original_source's connection/lobby bookkeeping, which
// the distilled spec left implicit).
package lobby

import (
	"sync"

	"replicore/host"
	"replicore/ids"
)

// Lobby is the ClientId -> controlled host.Handle association.
type Lobby struct {
	mu      sync.RWMutex
	handles map[ids.ClientId]host.Handle
}

// New returns an empty lobby.
func New() *Lobby {
	return &Lobby{handles: make(map[ids.ClientId]host.Handle)}
}

// Assign records that client now controls h, replacing any prior entry.
func (l *Lobby) Assign(client ids.ClientId, h host.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles[client] = h
}

// Handle returns the entity client currently controls, if any.
func (l *Lobby) Handle(client ids.ClientId) (host.Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.handles[client]
	return h, ok
}

// Remove drops client's lobby entry, e.g. on disconnect.
func (l *Lobby) Remove(client ids.ClientId) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, client)
}

// Each calls fn for every currently assigned client.
func (l *Lobby) Each(fn func(client ids.ClientId, h host.Handle)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for c, h := range l.handles {
		fn(c, h)
	}
}

// Len reports how many clients currently have a lobby entry.
func (l *Lobby) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handles)
}
