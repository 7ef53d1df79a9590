package dispatcher

import (
	"sort"
	"sync"

	"replicore/ids"
	"replicore/interest"
	"replicore/tick"
)

// ResendHorizon bounds the age, in ticks, at which an unacked Interest is
// still eligible for resend (spec.md §6 default: 32).
const ResendHorizon = 32

// Ledger is the per-client UnackedLedger: map Tick -> Interests sent at
// that tick and not yet acknowledged, bounded by ResendHorizon.
type Ledger struct {
	mu   sync.Mutex
	byClient map[ids.ClientId]map[tick.Tick][]interest.Interest
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byClient: make(map[ids.ClientId]map[tick.Tick][]interest.Interest)}
}

// Record stores the list of interests sent to client at tick t.
func (l *Ledger) Record(client ids.ClientId, t tick.Tick, sent []interest.Interest) {
	if len(sent) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	byTick, ok := l.byClient[client]
	if !ok {
		byTick = make(map[tick.Tick][]interest.Interest)
		l.byClient[client] = byTick
	}
	byTick[t] = append(byTick[t], sent...)
}

// Ack clears any ledger entry for client at t, as a tick is acknowledged.
func (l *Ledger) Ack(client ids.ClientId, t tick.Tick) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if byTick, ok := l.byClient[client]; ok {
		delete(byTick, t)
	}
}

// EvictOlderThan drops ledger entries for client older than floor; their
// Interests are lost (no longer eligible for resend), matching the 32-tick
// resend horizon bound on UnackedLedger (spec.md §3).
func (l *Ledger) EvictOlderThan(client ids.ClientId, floor tick.Tick) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byTick, ok := l.byClient[client]
	if !ok {
		return
	}
	for t := range byTick {
		if t < floor {
			delete(byTick, t)
		}
	}
}

// DrainForResend removes and returns every Interest currently recorded for
// client within the resend horizon of "now", ordered oldest-tick-first then
// insertion order, ready to be push_front'd back onto the client's queue
// (spec.md §4.5's Resend producer).
func (l *Ledger) DrainForResend(client ids.ClientId, now tick.Tick) []interest.Interest {
	l.mu.Lock()
	defer l.mu.Unlock()
	byTick, ok := l.byClient[client]
	if !ok {
		return nil
	}
	floor := tick.Tick(0)
	if now >= ResendHorizon {
		floor = now - ResendHorizon
	}

	var ticks []tick.Tick
	for t := range byTick {
		if t >= floor {
			ticks = append(ticks, t)
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	var out []interest.Interest
	for _, t := range ticks {
		out = append(out, byTick[t]...)
		delete(byTick, t)
	}
	return out
}

// Len reports how many ticks currently have ledger entries for client
// (mostly for tests/diagnostics).
func (l *Ledger) Len(client ids.ClientId) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byClient[client])
}
