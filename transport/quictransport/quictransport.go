// Package quictransport implements transport.Connection/Listener over
// QUIC: the two reliable control/block channels as bidirectional streams
// opened once per connection, and the two per-tick unreliable channels as
// QUIC datagrams with a leading channel-id byte to tell them apart on
// receipt (spec.md §6's four logical channels over two QUIC transport
// primitives). Framing for the stream channels reuses
// protocol.WriteFramed/ReadFramed.
package quictransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"replicore/ids"
	"replicore/protocol"
	"replicore/transport"
)

// streamChannels lists the channels that get a dedicated reliable stream,
// opened in this fixed order right after the handshake so both sides agree
// on which stream is which without an extra negotiation round trip.
var streamChannels = []transport.Channel{transport.ChannelServerMessage, transport.ChannelBlock}

// Connection wraps a quic.Connection as a transport.Connection.
type Connection struct {
	client ids.ClientId
	conn   quic.Connection

	streamMu sync.Mutex
	streams  map[transport.Channel]quic.Stream

	disconnected chan struct{}
	closeOnce    sync.Once
}

// NewConnection wraps an already-established quic.Connection, opening (as
// the dialer) or accepting (as the listener) the reliable streams.
func NewConnection(ctx context.Context, client ids.ClientId, conn quic.Connection, dialer bool) (*Connection, error) {
	c := &Connection{
		client:       client,
		conn:         conn,
		streams:      make(map[transport.Channel]quic.Stream),
		disconnected: make(chan struct{}),
	}
	for _, ch := range streamChannels {
		var s quic.Stream
		var err error
		if dialer {
			s, err = conn.OpenStreamSync(ctx)
		} else {
			s, err = conn.AcceptStream(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("quictransport: stream %d: %w", ch, err)
		}
		c.streams[ch] = s
	}
	go c.watchClose()
	return c, nil
}

func (c *Connection) watchClose() {
	<-c.conn.Context().Done()
	c.closeOnce.Do(func() { close(c.disconnected) })
}

// Client implements transport.Connection.
func (c *Connection) Client() ids.ClientId { return c.client }

// Send implements transport.Connection. Stream channels are framed with a
// length prefix and are reliable; datagram channels are sent with a
// leading channel-id byte and may be silently dropped by the network.
func (c *Connection) Send(ctx context.Context, ch transport.Channel, payload []byte) error {
	if s, ok := c.streamFor(ch); ok {
		return protocol.WriteFramed(s, payload)
	}
	framed := make([]byte, len(payload)+1)
	framed[0] = byte(ch)
	copy(framed[1:], payload)
	return c.conn.SendDatagram(framed)
}

// Receive implements transport.Connection.
func (c *Connection) Receive(ctx context.Context, ch transport.Channel) ([]byte, error) {
	if s, ok := c.streamFor(ch); ok {
		return protocol.ReadFramed(s)
	}
	for {
		data, err := c.conn.ReceiveDatagram(ctx)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		if transport.Channel(data[0]) != ch {
			// Not this channel's datagram; a real deployment demuxes all
			// datagram channels from one receive loop instead of polling
			// per-channel like this, but the contract only requires
			// Receive to eventually return a payload for ch.
			continue
		}
		return data[1:], nil
	}
}

// CanSend implements transport.Connection. Datagram channels always have
// room (they drop instead of blocking); stream channels report readiness
// via the stream's flow-control window, which quic-go does not expose
// directly, so streams conservatively always report true and rely on
// Send's own blocking/erroring behavior.
func (c *Connection) CanSend(ch transport.Channel) bool {
	return true
}

// NetworkInfo implements transport.Connection. quic-go's public API does
// not surface RTT, loss fraction, or bandwidth estimates directly (those
// live in its internal congestion controller), so this returns a zero
// value; ArrivalDeviation (package arrival) derives the figures replicore
// actually needs from inter-arrival gaps instead of relying on transport
// diagnostics for them.
func (c *Connection) NetworkInfo() transport.NetworkInfo {
	return transport.NetworkInfo{}
}

func (c *Connection) Disconnected() <-chan struct{} { return c.disconnected }

func (c *Connection) Close() error {
	c.closeOnce.Do(func() { close(c.disconnected) })
	return c.conn.CloseWithError(0, "closed")
}

func (c *Connection) streamFor(ch transport.Channel) (quic.Stream, bool) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	s, ok := c.streams[ch]
	return s, ok
}

var _ io.Closer = (*Connection)(nil)

// Listener wraps a quic.Listener, minting ClientIds for accepted
// connections and tracking their streams.
type Listener struct {
	inner *quic.Listener
	next  func() ids.ClientId

	mu      sync.Mutex
	clients map[ids.ClientId]*Connection
}

// Listen starts a QUIC listener on addr with tlsConf and the given
// replicore-specific quic.Config (idle timeout, datagram support, etc.).
func Listen(addr string, tlsConf *tls.Config, quicConf *quic.Config, next func() ids.ClientId) (*Listener, error) {
	inner, err := quic.ListenAddr(addr, tlsConf, quicConf)
	if err != nil {
		return nil, err
	}
	return &Listener{inner: inner, next: next, clients: make(map[ids.ClientId]*Connection)}, nil
}

// Accept implements transport.Listener.
func (l *Listener) Accept(ctx context.Context) (transport.Connection, error) {
	raw, err := l.inner.Accept(ctx)
	if err != nil {
		return nil, err
	}
	client := l.next()
	conn, err := NewConnection(ctx, client, raw, false)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.clients[client] = conn
	l.mu.Unlock()
	return conn, nil
}

// Clients implements transport.Listener.
func (l *Listener) Clients() []ids.ClientId {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ids.ClientId, 0, len(l.clients))
	for c := range l.clients {
		out = append(out, c)
	}
	return out
}

func (l *Listener) Close() error { return l.inner.Close() }

// Dial opens a QUIC connection to addr, as the client side of the
// handshake.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config, quicConf *quic.Config, client ids.ClientId) (*Connection, error) {
	raw, err := quic.DialAddr(ctx, addr, tlsConf, quicConf)
	if err != nil {
		return nil, err
	}
	return NewConnection(ctx, client, raw, true)
}

// DefaultDialTimeout bounds how long Dial waits for the QUIC handshake.
const DefaultDialTimeout = 5 * time.Second
