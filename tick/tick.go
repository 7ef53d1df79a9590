// Package tick provides the monotonic simulation counter, the fixed-step
// accumulator (SimInfo) and the SimDriver that advances both, including the
// rewind/resimulation loop used to reconcile server truth.
package tick

import "fmt"

// Tick is a 64-bit monotonically non-decreasing counter. It increments
// exactly once per consumed simulation step.
type Tick uint64

func (t Tick) String() string { return fmt.Sprintf("T%d", uint64(t)) }

// Before reports whether t happened strictly before other.
func (t Tick) Before(other Tick) bool { return t < other }

// Sub returns t-other as a signed delta computed in int64, without clamping
// (ticks never span more than a session's lifetime so this does not overflow
// in practice).
func (t Tick) Sub(other Tick) int64 { return int64(t) - int64(other) }
