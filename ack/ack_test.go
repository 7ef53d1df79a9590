package ack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/tick"
)

func TestAckRoundTrip(t *testing.T) {
	for base := tick.Tick(0); base < 40; base++ {
		for target := tick.Tick(0); target < 40; target++ {
			a := New(base)
			a.Ack(target)
			want := base.Sub(target)-1 >= 0 && base.Sub(target)-1 < WindowSize
			assert.Equal(t, want, a.IsAcked(target), "base=%d target=%d", base, target)
		}
	}
}

func TestSetBaseNeverReportsBeforeOriginalBase(t *testing.T) {
	a := New(100)
	missing := a.SetBase(140)
	for _, m := range missing {
		assert.GreaterOrEqual(t, uint64(m), uint64(100))
	}
}

func TestSetBaseNeverDoubleReports(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := New(0)
	seen := map[tick.Tick]bool{}
	base := tick.Tick(0)
	for i := 0; i < 500; i++ {
		// Randomly ack a handful of recent ticks before sliding forward.
		for j := 0; j < rng.Intn(3); j++ {
			back := tick.Tick(rng.Intn(WindowSize))
			if back <= base {
				a.Ack(base - back)
			}
		}
		base += tick.Tick(1 + rng.Intn(5))
		missing := a.SetBase(base)
		for _, m := range missing {
			require.False(t, seen[m], "tick %d reported twice", m)
			seen[m] = true
		}
	}
}

func TestSetBaseReportsOnlyUnackedWithinRange(t *testing.T) {
	a := New(10)
	a.Ack(9) // bit0
	prevBase := a.Base
	missing := a.SetBase(50)
	for _, m := range missing {
		assert.GreaterOrEqual(t, uint64(m), uint64(prevBase))
		assert.Less(t, uint64(m), uint64(50))
		assert.False(t, a.IsAcked(m))
	}
	assert.NotContains(t, missing, tick.Tick(9))
}

func TestMergeOnlyWhenNotOlder(t *testing.T) {
	a := New(100)
	a.Ack(99)
	older := New(90)
	older.Ack(89)
	a.Merge(older)
	assert.True(t, a.IsAcked(99))

	newer := New(110)
	a2 := New(100)
	a2.Merge(newer) // a2.Base(100) < newer.Base(110): no-op by contract
	assert.Equal(t, tick.Tick(100), a2.Base)
}
