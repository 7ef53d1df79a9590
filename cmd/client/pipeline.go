package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"replicore/ack"
	"replicore/dilation"
	"replicore/ids"
	"replicore/inputring"
	"replicore/protocol"
	"replicore/registry"
	"replicore/replication"
	"replicore/snapshot"
	"replicore/tick"
	"replicore/transport"
)

// localInput is the opaque per-tick input payload this client buffers and
// sends; a real client supplies its own concrete input encoding.
type localInput = []byte

// entitySnapshot is one entity's full component set at a single tick, the
// snapshot.Ring's element type backing this client's rewind baseline.
type entitySnapshot = map[ids.ComponentKind]any

// clientPipeline drives the receive/reconcile half of replication
// (spec.md §4.6-§4.10): decoding incoming UpdateMessages, applying them
// through replication.Client, feeding arrival/jitter into TimeDilation,
// and buffering local input for resim and resend.
type clientPipeline struct {
	Conn        transport.Connection
	Codec       *protocol.Codec
	Descriptors *registry.Table
	Replication *replication.Client
	Dilation    *dilation.Controller
	Step        time.Duration
	Log         *zap.Logger

	snapshots *snapshot.Ring[entitySnapshot]
	input     *inputring.Ring[localInput]

	mu      sync.Mutex
	pending map[tick.Tick]*protocol.UpdateMessage
	latest  tick.Tick
	ackWin  ack.Ack
}

func newClientPipeline(conn transport.Connection, codec *protocol.Codec, descriptors *registry.Table, repl *replication.Client, dil *dilation.Controller, step time.Duration, log *zap.Logger) *clientPipeline {
	return &clientPipeline{
		Conn:        conn,
		Codec:       codec,
		Descriptors: descriptors,
		Replication: repl,
		Dilation:    dil,
		Step:        step,
		Log:         log,
		snapshots:   snapshot.NewRing[entitySnapshot](),
		input:       inputring.NewRing[localInput](),
		pending:     make(map[tick.Tick]*protocol.UpdateMessage),
		ackWin:      ack.New(0),
	}
}

// ReceiveLoop decodes incoming UpdateMessages until the connection closes
// or ctx is cancelled, buffering each by tick for the driver's sub-schedule
// to consume at the right point in its own timeline, and folding the
// arriving tick into this client's outgoing ack window.
func (p *clientPipeline) ReceiveLoop(ctx context.Context) {
	for {
		raw, err := p.Conn.Receive(ctx, transport.ChannelEntityUpdate)
		if err != nil {
			return
		}
		msg, err := p.Codec.DecodeUpdate(raw)
		if err != nil {
			p.Log.Warn("decode update failed", zap.Error(err))
			continue
		}
		p.mu.Lock()
		p.pending[msg.Tick] = msg
		if msg.Tick > p.latest {
			p.latest = msg.Tick
		}
		if p.ackWin.Base <= msg.Tick {
			p.ackWin.SetBase(msg.Tick + 1)
		}
		p.ackWin.Ack(msg.Tick)
		p.mu.Unlock()
	}
}

func (p *clientPipeline) takePending(t tick.Tick) (*protocol.UpdateMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg, ok := p.pending[t]
	if ok {
		delete(p.pending, t)
	}
	return msg, ok
}

// Meta is the client's meta phase: request a rewind if authoritative state
// for an already-simulated tick arrived, and feed TimeDilation off of how
// far this client's clock is running ahead of the latest known server
// tick (spec.md §4.6's buffer-error decision).
func (p *clientPipeline) Meta(d *tick.Driver, t tick.Tick) {
	p.mu.Lock()
	msg, ok := p.pending[t]
	latest := p.latest
	rewindTo, needRewind := t, false
	for pt := range p.pending {
		if pt+snapshot.Horizon <= t {
			delete(p.pending, pt) // older than any retained snapshot
			continue
		}
		if pt < rewindTo {
			rewindTo, needRewind = pt, true
		}
	}
	p.mu.Unlock()

	if needRewind {
		d.RequestRewind(rewindTo)
	}

	lead := time.Duration(int64(t)-int64(latest)) * p.Step
	var stddev float32
	if ok {
		stddev = msg.ArrivalDeviation.Stddev
	}
	oneWayRTT := p.Conn.NetworkInfo().RTT / 2
	buffer := dilation.FrameBuffer(oneWayRTT, stddev, p.Step)
	dilation.Feedback(d, p.Dilation, lead, buffer)
}

// Rewind restores every registered descriptor's state to the snapshot
// recorded for tick t, the rewind sub-schedule's entry point.
func (p *clientPipeline) Rewind(d *tick.Driver, t tick.Tick) {
	values, ok := p.snapshots.At(t)
	if !ok {
		return
	}
	for _, kind := range p.Descriptors.Kinds() {
		desc, ok := p.Descriptors.Get(kind)
		if !ok {
			continue
		}
		perEntity := make(map[ids.StableId]any, len(values))
		for entity, comps := range values {
			if v, ok := comps[kind]; ok {
				perEntity[entity] = v
			}
		}
		desc.Restore(perEntity)
	}
}

// ApplyUpdateHistory applies any buffered UpdateMessage for t through
// replication.Client, then snapshots the resulting state so a later
// rewind can restore to exactly this point. The driver runs it at a rewind
// target and on every resim tick thereafter, not on the live pass.
func (p *clientPipeline) ApplyUpdateHistory(d *tick.Driver, t tick.Tick) {
	if msg, ok := p.takePending(t); ok {
		if err := p.Replication.Apply(msg); err != nil {
			p.Log.Warn("apply update failed", zap.Uint64("tick", uint64(t)), zap.Error(err))
		}
	}

	snap := make(map[ids.StableId]entitySnapshot)
	for _, kind := range p.Descriptors.Kinds() {
		desc, ok := p.Descriptors.Get(kind)
		if !ok {
			continue
		}
		for entity, v := range desc.Snapshot() {
			m, ok := snap[entity]
			if !ok {
				m = entitySnapshot{}
				snap[entity] = m
			}
			m[kind] = v
		}
	}
	p.snapshots.Push(t, snap)
}

// ApplyInputHistory is the hook a host's predicted-movement function
// re-runs during resim against this client's own buffered input for t; the
// host simulation itself is out of scope (spec.md §1), so this only looks
// up the buffered input for t and discards it.
func (p *clientPipeline) ApplyInputHistory(d *tick.Driver, t tick.Tick) {
	_, _ = p.input.At(t)
}

// RecordInput buffers this tick's locally-generated input for resim and
// for the next outgoing ClientInputMessage's send window.
func (p *clientPipeline) RecordInput(t tick.Tick, in localInput) {
	p.input.Push(t, in)
}

// SendInput builds and transmits a ClientInputMessage carrying the last
// inputring.SendWindow ticks of local input plus the current ack window.
func (p *clientPipeline) SendInput(ctx context.Context, t tick.Tick) error {
	p.mu.Lock()
	ackWin := p.ackWin
	p.mu.Unlock()

	msg := &protocol.ClientInputMessage{
		Tick:   t,
		Ack:    ackWin,
		Inputs: p.input.SendWindowSlice(),
	}
	encoded, err := p.Codec.EncodeInput(msg)
	if err != nil {
		return err
	}
	return p.Conn.Send(ctx, transport.ChannelClientInput, encoded)
}
