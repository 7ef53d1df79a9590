package protocol

import (
	"hash/fnv"
	"sort"
)

// ProtocolId is a 64-bit hash over the set of wire structures in play for a
// session. A mismatch between client and server is an immediate disconnect,
// never a soft error (spec.md §3, §7).
type ProtocolId uint64

// ComputeProtocolId hashes a stable concatenation of schema fingerprints:
// conventionally one string per wire message shape
// ("ServerMessage.v1", "EntityUpdate.v1", ...) plus one per registered
// ComponentKind name, so a schema change anywhere changes the id. Inputs
// are sorted before hashing so the result is independent of registration
// order.
func ComputeProtocolId(fingerprints []string) ProtocolId {
	sorted := append([]string(nil), fingerprints...)
	sort.Strings(sorted)
	h := fnv.New64a()
	for _, f := range sorted {
		_, _ = h.Write([]byte(f))
		_, _ = h.Write([]byte{0})
	}
	return ProtocolId(h.Sum64())
}
