package replication

import (
	"context"
	"time"

	"go.uber.org/zap"

	"replicore/ack"
	"replicore/demand"
	"replicore/host"
	"replicore/ids"
	"replicore/interest"
	"replicore/lobby"
	"replicore/protocol"
	"replicore/tick"
	"replicore/transport"
)

// Pipeline is the production glue run.go registers onto a tick.Driver's
// meta sub-schedule: once per consumed tick it runs the interest
// producers, grants any outstanding ownership-transfer demands, and drains
// every connected client's queue into an UpdateMessage that is
// compressed, ceiling-checked, and handed to that client's transport
// connection (spec.md §4.4-§4.6). It is also where an accepted
// connection's received ClientInputMessages get folded back into the
// server's ack/ledger bookkeeping.
type Pipeline struct {
	Server         *Server
	Codec          *protocol.Codec
	Lobby          *lobby.Lobby
	Demands        *demand.Queue
	MessageCeiling int
	Log            *zap.Logger

	sendTimeout time.Duration
}

// NewPipeline wires a Pipeline from its collaborators. messageCeiling is
// the hard per-message byte ceiling (spec.md §6 default: 3000).
func NewPipeline(server *Server, codec *protocol.Codec, lob *lobby.Lobby, demands *demand.Queue, messageCeiling int, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	server.Log = log
	return &Pipeline{
		Server:         server,
		Codec:          codec,
		Lobby:          lob,
		Demands:        demands,
		MessageCeiling: messageCeiling,
		Log:            log,
		sendTimeout:    time.Second,
	}
}

// Meta is registered via tick.Driver.AddMeta so producers run and updates
// go out exactly once per consumed real step, rather than once per
// Advance call (spec.md §4.1).
func (p *Pipeline) Meta(d *tick.Driver, t tick.Tick) {
	p.Server.RunProducers(t)
	p.grantDemands()
	for _, client := range p.Server.Clients.IDs() {
		p.sendTo(client, t)
	}
}

// grantDemands drains every outstanding ownership-transfer request and
// grants it unconditionally: the distilled spec left host veto policy out
// of scope, so the only host-free rule that makes the feature exercise
// anything at all is "every demand succeeds." A granted reassignment also
// queues the new owner for the full component set of its newly-controlled
// entity, since it has never seen that entity's state before.
func (p *Pipeline) grantDemands() {
	for _, req := range p.Demands.Drain() {
		p.Lobby.Assign(req.Client, host.Handle(req.Entity))
		st, ok := p.Server.Clients.State(req.Client)
		if !ok {
			continue
		}
		for _, kind := range p.Server.Descriptors.Kinds() {
			st.Queue.PushBack(interest.Interest{Entity: req.Entity, Kind: kind})
		}
	}
}

// sendTo builds, ceiling-checks, and transmits this tick's UpdateMessage
// for one client. A backed-up connection is skipped for this tick before
// anything is built, leaving its queue untouched. A ceiling violation drops
// the built message with a warning rather than blocking the whole tick on
// one client; the components involved are requeued so they are retried
// next tick (spec.md line 240's back-pressure semantics).
func (p *Pipeline) sendTo(client ids.ClientId, t tick.Tick) {
	st, ok := p.Server.Clients.State(client)
	if !ok || st.Conn == nil {
		return
	}
	if !st.Conn.CanSend(transport.ChannelEntityUpdate) {
		return
	}

	msg, selected, err := p.Server.buildUpdate(client, t)
	if err != nil {
		p.Log.Warn("build update failed", zap.Stringer("client", client), zap.Error(err))
		return
	}
	if msg == nil || msg.Empty() {
		return
	}

	encoded, err := p.Codec.EncodeUpdate(msg)
	if err != nil {
		p.Log.Warn("encode update failed", zap.Stringer("client", client), zap.Error(err))
		return
	}
	if len(encoded) > p.MessageCeiling {
		p.Log.Warn("update message exceeds ceiling, dropped",
			zap.Stringer("client", client),
			zap.Uint64("tick", uint64(t)),
			zap.Int("bytes", len(encoded)),
			zap.Int("ceiling", p.MessageCeiling))
		p.Server.requeue(client, t, selected)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	defer cancel()
	if err := st.Conn.Send(ctx, transport.ChannelEntityUpdate, encoded); err != nil {
		p.Log.Warn("send update failed", zap.Stringer("client", client), zap.Error(err))
	}
}

// ApplyClientInput folds a received ClientInputMessage into client's ack
// window, releasing any now-acknowledged ledger entries (spec.md §4.2) so
// they stop being eligible for resend, and resolves the host entity the
// client currently controls via the lobby so a host implementation knows
// whose handle the buffered input applies to.
func (p *Pipeline) ApplyClientInput(client ids.ClientId, msg *protocol.ClientInputMessage) {
	st, ok := p.Server.Clients.State(client)
	if !ok {
		return
	}
	if st.Arrival != nil {
		st.Arrival.Sample(time.Now())
	}
	if st.Ack.Base < msg.Ack.Base {
		for _, missed := range st.Ack.SetBase(msg.Ack.Base) {
			p.Log.Debug("client input tick fell out of ack window unacknowledged",
				zap.Stringer("client", client), zap.Uint64("tick", uint64(missed)))
		}
	}
	st.Ack.Merge(msg.Ack)

	for k := 0; k < ack.WindowSize; k++ {
		if st.Ack.Base < tick.Tick(k+1) {
			break
		}
		acked := st.Ack.Base - 1 - tick.Tick(k)
		if !st.Ack.IsAcked(acked) {
			continue
		}
		p.Server.Dispatcher.Ledger.Ack(client, acked)
		if acked == 0 {
			break
		}
	}

	if _, ok := p.Lobby.Handle(client); !ok {
		return
	}
	// A host implementation applies msg.Inputs onto the resolved handle
	// here; the host ECS itself is out of scope (spec.md §1).
}
