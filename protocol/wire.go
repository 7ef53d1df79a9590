// Package protocol defines the wire messages exchanged between server and
// client (spec.md §6), the length-prefixed binary codec used to frame them,
// and the ProtocolId handshake gate.
package protocol

import (
	"replicore/ack"
	"replicore/ids"
	"replicore/tick"
)

// ArrivalStats is the jitter feedback the server attaches to every outgoing
// UpdateMessage so the client's TimeDilation controller reacts to jitter,
// not just mean delay (spec.md §4.9).
type ArrivalStats struct {
	Mean   float32
	Stddev float32
}

// ComponentDespawn names one (entity, kind) pair whose component was
// removed without the entity itself despawning.
type ComponentDespawn struct {
	Entity ids.StableId
	Kind   ids.ComponentKind
}

// UpdateMessage is the server -> client per-tick authoritative delta.
type UpdateMessage struct {
	Tick             tick.Tick
	ArrivalDeviation ArrivalStats
	EntityUpdate     map[ids.StableId]map[ids.ComponentKind][]byte
	ComponentDespawn []ComponentDespawn
	EntityDespawn    []ids.StableId
}

// NewUpdateMessage returns an UpdateMessage with its maps initialized.
func NewUpdateMessage(t tick.Tick) *UpdateMessage {
	return &UpdateMessage{
		Tick:         t,
		EntityUpdate: make(map[ids.StableId]map[ids.ComponentKind][]byte),
	}
}

// Put records the serialized value of (entity, kind) into the message.
func (m *UpdateMessage) Put(entity ids.StableId, kind ids.ComponentKind, payload []byte) {
	e, ok := m.EntityUpdate[entity]
	if !ok {
		e = make(map[ids.ComponentKind][]byte)
		m.EntityUpdate[entity] = e
	}
	e[kind] = payload
}

// Empty reports whether the message carries no entity updates or despawns,
// i.e. there is nothing worth sending this tick.
func (m *UpdateMessage) Empty() bool {
	return len(m.EntityUpdate) == 0 && len(m.ComponentDespawn) == 0 && len(m.EntityDespawn) == 0
}

// ClientInputMessage is the client -> server per-tick input report.
type ClientInputMessage struct {
	Tick   tick.Tick
	Ack    ack.Ack
	Inputs map[tick.Tick][]byte
}
