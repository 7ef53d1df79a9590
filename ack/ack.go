// Package ack implements the sliding 32-bit acknowledgement window used to
// drive reliable-resend decisions for otherwise-unreliable per-tick traffic.
package ack

import (
	"sort"

	"replicore/tick"
)

// WindowSize is the number of ticks an Ack can represent behind its base.
const WindowSize = 32

// Ack is a 32-bit window over the ticks immediately preceding Base. Bit k
// is set iff tick Base-1-k was successfully received. origin is the Base
// this Ack was first constructed with: the window's initial 32 bits cover
// ticks that predate the Ack's own existence, and those must never be
// reported as "fell out unacknowledged" once they age past the window.
type Ack struct {
	Base   tick.Tick
	Bits   uint32
	origin tick.Tick
}

// New creates an Ack with the given base and no ticks acknowledged yet.
func New(base tick.Tick) Ack { return Ack{Base: base, origin: base} }

// IsAcked reports whether t is marked acknowledged in this window.
func (a Ack) IsAcked(t tick.Tick) bool {
	k := a.Base.Sub(t) - 1
	if k < 0 || k >= WindowSize {
		return false
	}
	return a.Bits&(1<<uint(k)) != 0
}

// Ack marks t acknowledged if it falls within the current window;
// otherwise it is silently ignored (too old or in the future).
func (a *Ack) Ack(t tick.Tick) {
	k := a.Base.Sub(t) - 1
	if k < 0 || k >= WindowSize {
		return
	}
	a.Bits |= 1 << uint(k)
}

// Merge folds other's bits into a, provided other is not newer than a. When
// other.Base is newer, the caller is expected to SetBase first and merge
// afterwards; Merge never moves Base backwards.
func (a *Ack) Merge(other Ack) {
	if a.Base < other.Base {
		return
	}
	shift := a.Base.Sub(other.Base)
	if shift >= 32 {
		return
	}
	a.Bits |= other.Bits << uint(shift)
}

// SetBase slides the window forward to newBase and returns, in ascending
// order, every unacknowledged tick that slides out of the window (these lie
// below oldBase); when the slide is WindowSize or more, the ticks in
// [oldBase+WindowSize, newBase) are reported as well. No tick before the
// original base is ever reported, and no tick is reported twice across
// repeated calls.
func (a *Ack) SetBase(newBase tick.Tick) []tick.Tick {
	if newBase <= a.Base {
		return nil
	}
	prevBase := a.Base
	delta := newBase.Sub(prevBase)
	var missing []tick.Tick

	if delta >= WindowSize {
		for k := 0; k < WindowSize; k++ {
			if tick.Tick(k) >= prevBase {
				continue // tick would be negative
			}
			if a.Bits&(1<<uint(k)) == 0 {
				t := prevBase - 1 - tick.Tick(k)
				if t >= a.origin {
					missing = append(missing, t)
				}
			}
		}
		for t := prevBase + WindowSize; t < newBase; t++ {
			missing = append(missing, t)
		}
		a.Bits = 0
	} else {
		for k := WindowSize - int(delta); k < WindowSize; k++ {
			if tick.Tick(k) >= prevBase {
				continue // tick would be negative
			}
			if a.Bits&(1<<uint(k)) == 0 {
				t := prevBase - 1 - tick.Tick(k)
				if t >= a.origin {
					missing = append(missing, t)
				}
			}
		}
		a.Bits <<= uint(delta)
	}

	a.Base = newBase
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
