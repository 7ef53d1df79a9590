package session

import (
	"fmt"

	"replicore/ids"
	"replicore/protocol"
)

// Accept runs the server side of the handshake for a connection the
// transport layer has already assigned client to: it checks the client's
// declared ProtocolId against expected, then consults the replay guard so
// a retransmitted Connect on the same connection gets back the same
// Accepted rather than being processed as if it were new.
func Accept(client ids.ClientId, conn Connect, expected protocol.ProtocolId, guard *Guard) ServerMessage {
	if conn.ProtocolId != expected {
		return ServerMessage{Rejected: &Rejected{
			Reason: fmt.Sprintf("protocol mismatch: have %d want %d", conn.ProtocolId, expected),
		}}
	}

	accepted := Accepted{Client: client}
	if !guard.Admit(client, accepted) {
		if cached, ok := guard.Cached(client); ok {
			return ServerMessage{Accepted: &cached}
		}
	}
	return ServerMessage{Accepted: &accepted}
}
