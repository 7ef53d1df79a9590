// Package ids holds the small identifier types shared across the
// replication core: StableId (server-assigned entity identity),
// ComponentKind (replicable component type id) and ClientId (session
// identity assigned by the transport layer on connect).
package ids

import "fmt"

// StableId is the server-assigned identifier for a replicated entity. It is
// opaque to the wire format but is conventionally an index+generation pair
// packed into 64 bits so a reused index cannot collide with a despawned
// entity's old identifier.
type StableId uint64

// NewStableId packs an index and generation into a StableId.
func NewStableId(index uint32, generation uint32) StableId {
	return StableId(uint64(generation)<<32 | uint64(index))
}

// Index returns the low 32 bits.
func (s StableId) Index() uint32 { return uint32(s) }

// Generation returns the high 32 bits.
func (s StableId) Generation() uint32 { return uint32(s >> 32) }

func (s StableId) String() string {
	return fmt.Sprintf("StableId(%d#%d)", s.Index(), s.Generation())
}

// ComponentKind names one replicable component type. The mapping from Go
// type to ComponentKind is persistent across runs (see package registry).
type ComponentKind uint16

func (k ComponentKind) String() string { return fmt.Sprintf("ComponentKind(%d)", uint16(k)) }

// ClientId identifies one connected client session. Assigned by the
// transport/session layer on connect; not transmitted as part of replicated
// state.
type ClientId uint64

func (c ClientId) String() string { return fmt.Sprintf("Client(%d)", uint64(c)) }
