package tick

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNegativeDelta is returned by Advance when given a negative wall-clock
// delta; the host is expected to treat this as a programmer error, not a
// recoverable condition.
var ErrNegativeDelta = errors.New("tick: negative wall-clock delta")

// Phase is one step of a sub-schedule. It receives the driver (so it may
// call RequestRewind) and the tick currently being processed.
type Phase func(d *Driver, t Tick)

// DefaultRingHorizon bounds how far back a rewind target may reach; it
// mirrors the 32-entry SnapshotRing/InputRing/Ack windows used elsewhere.
const DefaultRingHorizon = 32

// Driver runs the fixed-timestep loop described in spec.md §4.1: per host
// frame it accumulates wall-clock delta and, while the accumulator covers at
// least one effective step, advances Tick and runs the sim/meta
// sub-schedules. A Rewind requested during meta is serviced once the normal
// loop drains, via the rewind/apply-history sub-schedules followed by a
// resimulation back to the pre-rewind tick.
type Driver struct {
	current Tick
	info    SimInfo

	sim                []Phase
	meta               []Phase
	rewind             []Phase
	applyUpdateHistory []Phase
	applyInputHistory  []Phase

	pendingRewind *Tick
	ringHorizon   Tick

	log *zap.Logger
}

// NewDriver creates a driver with the given fixed step. log may be nil.
func NewDriver(step time.Duration, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		info:        SimInfo{Step: step},
		ringHorizon: DefaultRingHorizon,
		log:         log,
	}
}

// Current returns the tick currently being processed (valid inside phase
// callbacks) or the last completed tick otherwise.
func (d *Driver) Current() Tick { return d.current }

// Info returns a copy of the current SimInfo, for inspection by
// TimeDilation or diagnostics.
func (d *Driver) Info() SimInfo { return d.info }

// SetAccel is the sole entry point TimeDilation uses to bias the step.
func (d *Driver) SetAccel(sign AccelSign, delta time.Duration) {
	d.info.AccelSign = sign
	d.info.AccelDelta = delta
}

// SetRingHorizon overrides the default 32-tick rewind clamp, e.g. in tests.
func (d *Driver) SetRingHorizon(h int) { d.ringHorizon = Tick(h) }

// AddSim registers a phase run once per consumed step and replayed during
// resimulation. This is the only replayable phase.
func (d *Driver) AddSim(p Phase) { d.sim = append(d.sim, p) }

// AddMeta registers a phase run exactly once per consumed real step; it is
// never replayed during resim (networking housekeeping: send/receive/enqueue).
func (d *Driver) AddMeta(p Phase) { d.meta = append(d.meta, p) }

// AddRewind registers a phase run once, at the start of a rewind, before any
// resimulation (restoring component values from a snapshot).
func (d *Driver) AddRewind(p Phase) { d.rewind = append(d.rewind, p) }

// AddApplyUpdateHistory registers a phase run at the rewind target and at
// every resim tick thereafter (applying buffered server UpdateMessages).
func (d *Driver) AddApplyUpdateHistory(p Phase) {
	d.applyUpdateHistory = append(d.applyUpdateHistory, p)
}

// AddApplyInputHistory registers a phase run at the rewind target and at
// every resim tick thereafter (applying buffered client/server inputs).
func (d *Driver) AddApplyInputHistory(p Phase) {
	d.applyInputHistory = append(d.applyInputHistory, p)
}

// RequestRewind marks that the current tick's processing uncovered a need
// to reconcile state at target. If more than one rewind is requested within
// a single Advance call (multiple meta phases, or multiple consumed steps),
// the oldest target wins so that no reconciliation is skipped.
func (d *Driver) RequestRewind(target Tick) {
	if d.pendingRewind == nil || target < *d.pendingRewind {
		t := target
		d.pendingRewind = &t
	}
}

// Advance consumes dt of wall-clock time. A zero dt is treated as "the host
// could not provide a wall-clock this frame" and is a silent no-op: no time
// accumulates, no tick advances. A negative dt is a programmer error.
func (d *Driver) Advance(dt time.Duration) error {
	if dt < 0 {
		return ErrNegativeDelta
	}
	if dt == 0 {
		return nil
	}
	d.info.Accumulator += dt

	consumed := 0
	for d.info.Accumulator >= d.info.EffectiveStep() {
		step := d.info.EffectiveStep()
		d.info.Accumulator -= step
		d.current++
		d.run(d.sim)
		d.run(d.meta)
		consumed++
	}
	if consumed == 0 {
		return nil
	}
	if d.pendingRewind != nil {
		d.doRewind()
	}
	return nil
}

func (d *Driver) doRewind() {
	preRewind := d.current
	target := *d.pendingRewind

	// The oldest tick a ringHorizon-sized window still retains is
	// preRewind-(ringHorizon-1) — e.g. a 32-entry SnapshotRing holding
	// ticks [newest-31, newest] — so the clamp floor is ringHorizon-1
	// ticks back, not ringHorizon back (spec.md §4.1: "rewind targets
	// older than current-31 are clamped to current-31").
	if d.ringHorizon > 0 && preRewind > d.ringHorizon-1 && target < preRewind-d.ringHorizon+1 {
		floor := preRewind - d.ringHorizon + 1
		d.log.Debug("rewind target clamped to ring horizon",
			zap.Uint64("requested", uint64(target)),
			zap.Uint64("clamped", uint64(floor)))
		target = floor
	}

	d.current = target
	d.run(d.rewind)
	d.run(d.applyUpdateHistory)
	d.run(d.applyInputHistory)

	for t := target + 1; t <= preRewind; t++ {
		d.current = t
		d.run(d.sim)
		d.run(d.applyUpdateHistory)
		d.run(d.applyInputHistory)
	}

	if d.current != preRewind {
		d.log.Error("rewind resim did not land on pre-rewind tick",
			zap.Uint64("want", uint64(preRewind)),
			zap.Uint64("got", uint64(d.current)))
		d.current = preRewind
	}
	d.pendingRewind = nil
}

func (d *Driver) run(phases []Phase) {
	for _, p := range phases {
		p(d, d.current)
	}
}
