package inputring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"replicore/tick"
)

func TestRetainWindowKeepsOnlyLast32(t *testing.T) {
	r := NewRing[int]()
	for i := 0; i < 100; i++ {
		r.Push(tick.Tick(i), i)
	}
	assert.LessOrEqual(t, r.Len(), RetainWindow)
	for tk := range r.entries {
		assert.GreaterOrEqual(t, uint64(tk), uint64(99-31))
	}
}

func TestSendWindowSliceLastSix(t *testing.T) {
	r := NewRing[int]()
	for i := 0; i < 20; i++ {
		r.Push(tick.Tick(i), i)
	}
	win := r.SendWindowSlice()
	assert.LessOrEqual(t, len(win), SendWindow)
	for tk := range win {
		assert.GreaterOrEqual(t, uint64(tk), uint64(19-5))
	}
}

func TestUpsertDiscardsAlreadyExecutedTicks(t *testing.T) {
	r := NewRing[string]()
	r.Push(10, "old")
	r.Upsert(10, map[tick.Tick]string{10: "late", 11: "fresh"})
	v, ok := r.At(10)
	assert.True(t, ok)
	assert.Equal(t, "old", v, "tick <= current server tick must not be overwritten")
	v, ok = r.At(11)
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestUpsertOverwritesExistingFutureEntry(t *testing.T) {
	r := NewRing[int]()
	r.Upsert(0, map[tick.Tick]int{5: 1})
	r.Upsert(0, map[tick.Tick]int{5: 2})
	v, _ := r.At(5)
	assert.Equal(t, 2, v)
}
