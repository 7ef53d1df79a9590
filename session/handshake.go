// Package session implements the connect/disconnect control channel:
// spec.md's ServerMessage handshake variants, and a short-lived replay
// guard over ClientId so a repeated Connect within the guard window is
// answered from cache instead of re-running accept logic twice. The guard
// reuses the teacher's go-cache IP-rate-limit idiom (controller/server.go
// kept an ipCache of recently-seen source addresses); here it's keyed by
// ClientId instead of IP, since the layer below has already separated
// clients by connection.
package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"replicore/ids"
	"replicore/protocol"
)

// ServerMessage is the sum of messages exchanged on the reliable control
// channel, independent of per-tick UpdateMessage/ClientInputMessage
// traffic.
type ServerMessage struct {
	Connect    *Connect
	Accepted   *Accepted
	Rejected   *Rejected
	Disconnect *Disconnect
}

// Connect is the client's opening handshake request.
type Connect struct {
	ProtocolId protocol.ProtocolId
}

// Accepted confirms the handshake and assigns the client its id.
type Accepted struct {
	Client ids.ClientId
}

// Rejected explains why a Connect was refused.
type Rejected struct {
	Reason string
}

// Disconnect notifies the peer a session is ending.
type Disconnect struct {
	Reason string
}

// replayWindow bounds how long a duplicate Connect for the same ClientId
// is answered from cache rather than re-run through accept logic. Chosen
// generously relative to the tick rate: a retransmitted handshake should
// never slip past it and be treated as a second, independent connect.
const replayWindow = 5 * time.Second

// Guard deduplicates repeated Connect handshakes per ClientId within
// replayWindow, so a client retrying a dropped Accepted doesn't get
// spawned/lobbied twice.
type Guard struct {
	seen *gocache.Cache
}

// NewGuard returns a guard with the default replay window.
func NewGuard() *Guard {
	return &Guard{seen: gocache.New(replayWindow, replayWindow*2)}
}

// Admit reports whether this is the first Connect seen for client within
// the replay window; if so, it also records the accepted response so a
// repeat within the window can be answered without re-running accept
// logic.
func (g *Guard) Admit(client ids.ClientId, response Accepted) (first bool) {
	if _, found := g.seen.Get(client.String()); found {
		return false
	}
	g.seen.Set(client.String(), response, gocache.DefaultExpiration)
	return true
}

// Cached returns the previously recorded Accepted for client, if the
// replay guard still holds one.
func (g *Guard) Cached(client ids.ClientId) (Accepted, bool) {
	v, found := g.seen.Get(client.String())
	if !found {
		return Accepted{}, false
	}
	return v.(Accepted), true
}

// Forget drops client's replay-guard entry, e.g. once it has fully
// disconnected and a future Connect should be treated as fresh.
func (g *Guard) Forget(client ids.ClientId) {
	g.seen.Delete(client.String())
}
