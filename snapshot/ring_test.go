package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ids"
	"replicore/tick"
)

func TestRingBoundedAt32(t *testing.T) {
	r := NewRing[int]()
	for i := 0; i < 100; i++ {
		r.Set(tick.Tick(i), ids.StableId(1), i)
	}
	assert.LessOrEqual(t, r.Len(), Horizon)
	oldest, ok := r.Oldest()
	require.True(t, ok)
	assert.GreaterOrEqual(t, uint64(oldest), uint64(99-31))
}

func TestRingAtReturnsRecordedValue(t *testing.T) {
	r := NewRing[string]()
	r.Set(5, ids.StableId(42), "hello")
	m, ok := r.At(5)
	require.True(t, ok)
	assert.Equal(t, "hello", m[ids.StableId(42)])
}

func TestRingOutOfOrderInsertsStillBounded(t *testing.T) {
	r := NewRing[int]()
	r.Set(100, ids.StableId(1), 1)
	for i := 0; i < 50; i++ {
		r.Set(tick.Tick(i), ids.StableId(1), i)
	}
	for tk := range r.entries {
		assert.GreaterOrEqual(t, uint64(tk), uint64(100-31))
	}
}
