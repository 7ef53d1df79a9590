package replication

import (
	"replicore/dispatcher"
	"replicore/ids"
	"replicore/interest"
	"replicore/protocol"
	"replicore/registry"
	"replicore/tick"

	"go.uber.org/zap"
)

// Server runs the server-side half of one replication tick per
// spec.md §4.5-§4.6: drive the interest producers for every registered
// ComponentKind, then bin-pack each client's queue into an UpdateMessage.
type Server struct {
	Descriptors *registry.Table
	Dispatcher  *dispatcher.Dispatcher
	Clients     *Clients
	Log         *zap.Logger
}

// NewServer wires a Server from its collaborators.
func NewServer(descriptors *registry.Table, disp *dispatcher.Dispatcher, clients *Clients) *Server {
	return &Server{Descriptors: descriptors, Dispatcher: disp, Clients: clients, Log: zap.NewNop()}
}

// RunProducers runs change-detection and baseload for every registered
// kind, then resend, populating each client's InterestQueue for this
// tick. Baseload's one-shot flag is cleared for a client only once every
// registered kind has had its baseload sweep run in this call, so a
// client connecting mid-tick doesn't miss a kind that already ran.
func (s *Server) RunProducers(now tick.Tick) {
	var baseloading []ids.ClientId
	for _, client := range s.Clients.IDs() {
		if s.Clients.NeedsBaseload(client) {
			baseloading = append(baseloading, client)
		}
	}
	kinds := s.Descriptors.Kinds()
	for _, kind := range kinds {
		desc, ok := s.Descriptors.Get(kind)
		if !ok {
			continue
		}
		dispatcher.RunChangeDetection(kind, desc, s.Clients)
		dispatcher.RunBaseload(kind, desc, s.Clients)
	}
	for _, client := range baseloading {
		s.Clients.ClearBaseload(client)
	}
	dispatcher.RunResend(s.Dispatcher.Ledger, now, s.Clients)
}

// BuildUpdate runs the dispatcher's MTU bin-packing for client and
// serializes the selected (entity, kind) pairs into an UpdateMessage ready
// to send on the EntityUpdate channel. Entities the identity map has not
// yet told the client about still go out; the client resolves them via
// ResolveOrSpawn on receipt (spec.md §4.6).
func (s *Server) BuildUpdate(client ids.ClientId, t tick.Tick) (*protocol.UpdateMessage, error) {
	msg, _, err := s.buildUpdate(client, t)
	return msg, err
}

// buildUpdate is BuildUpdate's internal form: it also returns the selected
// interests so a caller that decides not to actually transmit the result
// (the message ceiling, spec.md §4.4) can requeue them via requeue instead
// of losing them.
func (s *Server) buildUpdate(client ids.ClientId, t tick.Tick) (*protocol.UpdateMessage, []interest.Interest, error) {
	st, ok := s.Clients.State(client)
	if !ok {
		return nil, nil, nil
	}
	selected := s.Dispatcher.SelectForClient(client, t, st.Queue)
	msg := protocol.NewUpdateMessage(t)
	if st.Arrival != nil {
		mean, stddev := st.Arrival.Stats()
		msg.ArrivalDeviation = protocol.ArrivalStats{Mean: mean, Stddev: stddev}
	}

	sizes := map[ids.ComponentKind]int{}
	for _, x := range selected {
		desc, ok := s.Descriptors.Get(x.Kind)
		if !ok {
			continue
		}
		value, ok := desc.Get(x.Entity)
		if !ok {
			msg.ComponentDespawn = append(msg.ComponentDespawn, protocol.ComponentDespawn{Entity: x.Entity, Kind: x.Kind})
			continue
		}
		payload, err := desc.Serialize(value)
		if err != nil {
			return nil, nil, err
		}
		msg.Put(x.Entity, x.Kind, payload)
		sizes[x.Kind] += len(payload)
		if dispatcher.IsOversize(len(payload)) {
			s.Log.Warn("oversize component",
				zap.Stringer("client", client),
				zap.Stringer("entity", x.Entity),
				zap.Stringer("kind", x.Kind),
				zap.Int("bytes", len(payload)))
		}
	}
	for kind, total := range sizes {
		s.Dispatcher.Estimator.Observe(kind, total)
	}
	return msg, selected, nil
}

// requeue undoes SelectForClient's bookkeeping for a message that was
// built but never actually sent (the 3 KiB message ceiling, spec.md §4.4):
// the ledger entry is dropped, since nothing was delivered to resend, and
// every selected interest goes back onto the front of the client's queue
// so it is retried next tick instead of being lost (spec.md line 240's
// back-pressure semantics).
func (s *Server) requeue(client ids.ClientId, t tick.Tick, selected []interest.Interest) {
	s.Dispatcher.Ledger.Ack(client, t)
	st, ok := s.Clients.State(client)
	if !ok {
		return
	}
	for i := len(selected) - 1; i >= 0; i-- {
		st.Queue.PushFront(selected[i])
	}
}
