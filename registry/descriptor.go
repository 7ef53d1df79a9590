package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"replicore/ids"
)

// Descriptor is the polymorphic stand-in for what, in the monomorphized
// original, was one scheduler slot generated per replicated component type
// (design note, spec.md §9). The Dispatcher and replication pipeline walk a
// Table of these rather than running one pass per concrete Go type.
type Descriptor struct {
	Kind ids.ComponentKind
	Name string

	// Serialize/Deserialize convert between the component's Go value and
	// its wire payload. The wire codec itself (framing, compression) is an
	// external collaborator (spec.md §1); these hooks only handle the
	// per-component "definition" conversion.
	Serialize   func(v any) ([]byte, error)
	Deserialize func(data []byte) (any, error)

	// Equal reports whether two deserialized values are identical, used by
	// the client apply step to decide update vs. no-op (spec.md §4.6).
	Equal func(a, b any) bool

	// CollectChanged returns entities whose value of this kind changed
	// since the last call — the per-kind change detector (spec.md §4.5).
	CollectChanged func() []ids.StableId

	// Get reads the current value for entity, if present.
	Get func(entity ids.StableId) (any, bool)

	// Apply writes value onto entity (insert or update), used by both the
	// server's authoritative state and the client's apply-update-history
	// phase.
	Apply func(entity ids.StableId, value any) error

	// Snapshot captures every current (entity -> value) pair of this kind,
	// for SnapshotRing.
	Snapshot func() map[ids.StableId]any

	// Restore writes a snapshot's values back onto the host store, used by
	// the rewind phase.
	Restore func(values map[ids.StableId]any)
}

// Table is the process-wide set of registered descriptors, keyed by kind.
type Table struct {
	mu    sync.RWMutex
	byKind map[ids.ComponentKind]*Descriptor
}

// NewTable returns an empty descriptor table.
func NewTable() *Table {
	return &Table{byKind: make(map[ids.ComponentKind]*Descriptor)}
}

// Register adds (or replaces) the descriptor for d.Kind.
func (t *Table) Register(d Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := d
	t.byKind[d.Kind] = &cp
}

// Get returns the descriptor for kind, if registered.
func (t *Table) Get(kind ids.ComponentKind) (*Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byKind[kind]
	return d, ok
}

// Kinds returns every registered kind, in no particular order.
func (t *Table) Kinds() []ids.ComponentKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ids.ComponentKind, 0, len(t.byKind))
	for k := range t.byKind {
		out = append(out, k)
	}
	return out
}

// JSONCodec builds the Serialize/Deserialize pair of a Descriptor from
// encoding/json, for components that don't need a bespoke wire format. A
// host free to use a different serialization codec (spec.md §1 names this
// an external collaborator) can simply not use this helper.
func JSONCodec[C any]() (func(any) ([]byte, error), func([]byte) (any, error)) {
	serialize := func(v any) ([]byte, error) {
		c, ok := v.(C)
		if !ok {
			return nil, fmt.Errorf("registry: value is %T, want %T", v, c)
		}
		return json.Marshal(c)
	}
	deserialize := func(data []byte) (any, error) {
		var c C
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return serialize, deserialize
}
