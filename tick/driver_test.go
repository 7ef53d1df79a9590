package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceCountsExactSteps(t *testing.T) {
	d := NewDriver(10*time.Millisecond, nil)
	var simRuns, metaRuns int
	d.AddSim(func(d *Driver, tk Tick) { simRuns++ })
	d.AddMeta(func(d *Driver, tk Tick) { metaRuns++ })

	require.NoError(t, d.Advance(103*time.Millisecond))
	assert.Equal(t, Tick(10), d.Current())
	assert.Equal(t, 10, simRuns)
	assert.Equal(t, 10, metaRuns)

	// Fractional remainder carries over in the accumulator.
	require.NoError(t, d.Advance(7*time.Millisecond))
	assert.Equal(t, Tick(11), d.Current())
}

func TestAdvanceZeroDeltaSkipsFrame(t *testing.T) {
	d := NewDriver(10*time.Millisecond, nil)
	require.NoError(t, d.Advance(0))
	assert.Equal(t, Tick(0), d.Current())
}

func TestAdvanceNegativeDeltaErrors(t *testing.T) {
	d := NewDriver(10*time.Millisecond, nil)
	require.ErrorIs(t, d.Advance(-time.Millisecond), ErrNegativeDelta)
}

func TestRewindResimulatesDeterministically(t *testing.T) {
	d := NewDriver(10*time.Millisecond, nil)
	d.SetRingHorizon(32)

	var state int
	snapshots := map[Tick]int{}
	var simLog []Tick

	d.AddSim(func(d *Driver, tk Tick) {
		state++
		simLog = append(simLog, tk)
		snapshots[tk] = state
	})
	// The meta phase at tick 4 requests a rewind to tick 2.
	d.AddMeta(func(d *Driver, tk Tick) {
		if tk == 4 {
			d.RequestRewind(2)
		}
	})
	d.AddRewind(func(d *Driver, tk Tick) {
		state = snapshots[tk]
	})

	require.NoError(t, d.Advance(40*time.Millisecond)) // ticks 1..4, then rewind to 2, resim 3..4

	assert.Equal(t, Tick(4), d.Current())
	// Deterministic sim means resimulating 3..4 from the snapshot at 2
	// reproduces the same final state as the straight-through run.
	assert.Equal(t, snapshots[4], state)
}

func TestRewindClampsToRingHorizon(t *testing.T) {
	d := NewDriver(time.Millisecond, nil)
	d.SetRingHorizon(32)

	var clamped Tick
	d.AddRewind(func(d *Driver, tk Tick) { clamped = tk })
	d.AddMeta(func(d *Driver, tk Tick) {
		if tk == 40 {
			d.RequestRewind(1) // far older than the 32-tick horizon
		}
	})
	require.NoError(t, d.Advance(40*time.Millisecond))
	assert.Equal(t, Tick(40-31), clamped)
	assert.Equal(t, Tick(40), d.Current())
}
