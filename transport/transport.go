// Package transport defines the channel-oriented network contract
// replicore runs on (spec.md §6): two reliable stream channels for
// control/block traffic and two unreliable datagram channels for
// per-tick entity updates and client input, plus per-connection network
// diagnostics.
package transport

import (
	"context"
	"time"

	"replicore/ids"
)

// Channel names the four logical channels spec.md §6 distinguishes.
// ServerMessage and Block need in-order, reliable delivery; EntityUpdate
// and ClientInput are sent unreliably every tick and are obsoleted by the
// next tick's message if lost.
type Channel int

const (
	// ChannelServerMessage carries the handshake/session.ServerMessage
	// control traffic.
	ChannelServerMessage Channel = iota
	// ChannelBlock carries large, reliable one-off payloads (e.g. a full
	// registry snapshot on connect) too big for a single datagram.
	ChannelBlock
	// ChannelEntityUpdate carries protocol.UpdateMessage every tick.
	ChannelEntityUpdate
	// ChannelClientInput carries protocol.ClientInputMessage every tick.
	ChannelClientInput
)

// NetworkInfo is the per-connection diagnostic snapshot; the client's
// TimeDilation feedback reads RTT from it (spec.md §6, supplemented from
// original_source).
type NetworkInfo struct {
	RTT            time.Duration
	Loss           float32
	BandwidthUpBps int64
	BandwidthDownBps int64
}

// Connection is one client's transport-level session, exposing the four
// logical channels as send/receive operations plus liveness/diagnostics.
type Connection interface {
	Client() ids.ClientId

	// Send transmits payload on ch. For datagram channels this may
	// silently drop the payload instead of blocking or erroring, matching
	// "unreliable" delivery.
	Send(ctx context.Context, ch Channel, payload []byte) error

	// Receive blocks until a payload arrives on ch or ctx is done.
	Receive(ctx context.Context, ch Channel) ([]byte, error)

	// CanSend reports whether ch currently has room for another send
	// without blocking (spec.md §6's can_send), so the dispatcher can
	// skip a client whose reliable channel is backed up rather than
	// stalling the whole tick on it.
	CanSend(ch Channel) bool

	NetworkInfo() NetworkInfo
	Disconnected() <-chan struct{}
	Close() error
}

// Listener accepts new client connections.
type Listener interface {
	Accept(ctx context.Context) (Connection, error)
	Clients() []ids.ClientId
	Close() error
}
