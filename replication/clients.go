// Package replication glues the Dispatcher, the descriptor Table, and
// transport together into the per-tick server and client pipelines
// (spec.md §4.5-§4.9): producing outgoing UpdateMessages, applying
// incoming ones, and running the baseload/resend/change-detection
// producers against each connected client's InterestQueue.
package replication

import (
	"sync"

	"replicore/ack"
	"replicore/arrival"
	"replicore/ids"
	"replicore/interest"
	"replicore/transport"
)

// ClientState is everything the server keeps per connected client: its
// interest queue, its inbound ack window, its live transport connection,
// its input arrival-jitter tracker, and whether it still owes a full
// baseload sweep.
type ClientState struct {
	Queue         *interest.Queue
	Ack           ack.Ack
	Conn          transport.Connection
	Arrival       *arrival.Tracker
	needsBaseload bool
}

// Clients is the server-side registry of connected clients, implementing
// dispatcher.Clients so the interest producers in package dispatcher can
// drive it directly.
type Clients struct {
	mu      sync.RWMutex
	clients map[ids.ClientId]*ClientState
}

// NewClients returns an empty client registry.
func NewClients() *Clients {
	return &Clients{clients: make(map[ids.ClientId]*ClientState)}
}

// ConnectAt registers a newly-accepted client, seeding its Ack at the
// given base tick and recording the transport connection the send/receive
// pipelines will use to reach it.
func (c *Clients) ConnectAt(client ids.ClientId, ackBase ack.Ack, conn transport.Connection) *ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &ClientState{
		Queue:         interest.NewQueue(),
		Ack:           ackBase,
		Conn:          conn,
		Arrival:       arrival.NewTracker(),
		needsBaseload: true,
	}
	c.clients[client] = st
	return st
}

// Disconnect removes client entirely.
func (c *Clients) Disconnect(client ids.ClientId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, client)
}

// State returns the per-client bookkeeping, if client is connected.
func (c *Clients) State(client ids.ClientId) (*ClientState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.clients[client]
	return st, ok
}

// Each implements dispatcher.Clients: it calls fn once per currently
// connected client with that client's queue.
func (c *Clients) Each(fn func(client ids.ClientId, queue *interest.Queue)) {
	c.mu.RLock()
	snapshot := make(map[ids.ClientId]*interest.Queue, len(c.clients))
	for id, st := range c.clients {
		snapshot[id] = st.Queue
	}
	c.mu.RUnlock()
	for id, q := range snapshot {
		fn(id, q)
	}
}

// NeedsBaseload implements dispatcher.Clients.
func (c *Clients) NeedsBaseload(client ids.ClientId) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.clients[client]
	return ok && st.needsBaseload
}

// ClearBaseload implements dispatcher.Clients.
func (c *Clients) ClearBaseload(client ids.ClientId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.clients[client]; ok {
		st.needsBaseload = false
	}
}

// IDs returns every currently connected client id, in no particular order.
func (c *Clients) IDs() []ids.ClientId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ids.ClientId, 0, len(c.clients))
	for id := range c.clients {
		out = append(out, id)
	}
	return out
}

// Len reports how many clients are currently connected.
func (c *Clients) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
