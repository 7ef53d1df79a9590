package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ids"
	"replicore/interest"
)

const (
	kindA ids.ComponentKind = 1
	kindB ids.ComponentKind = 2
	kindC ids.ComponentKind = 3
)

func newEstimator(sizes map[ids.ComponentKind]int) *SizeEstimator {
	e := NewSizeEstimator()
	for k, v := range sizes {
		e.Observe(k, v)
	}
	return e
}

func TestMTUBinPacking(t *testing.T) {
	// spec.md §8 scenario 5.
	est := newEstimator(map[ids.ComponentKind]int{kindA: 600, kindB: 600, kindC: 400})
	d := New(Requires{}, est, NewLedger())
	d.MTU = 1500

	q := interest.NewQueue()
	entity := ids.StableId(1)
	q.PushBack(interest.Interest{Entity: entity, Kind: kindA})
	q.PushBack(interest.Interest{Entity: entity, Kind: kindB})
	q.PushBack(interest.Interest{Entity: entity, Kind: kindC})

	out := d.SelectForClient(1, 5, q)
	assert.Equal(t, []interest.Interest{
		{Entity: entity, Kind: kindA},
		{Entity: entity, Kind: kindB},
	}, out)

	// C was pushed to front for next tick.
	first, ok := q.PeekFirst()
	require.True(t, ok)
	assert.Equal(t, interest.Interest{Entity: entity, Kind: kindC}, first)
}

func TestDependencyGroupTooBigStaysQueued(t *testing.T) {
	// spec.md §8 scenario 6.
	est := newEstimator(map[ids.ComponentKind]int{kindA: 500, kindB: 500})
	d := New(Requires{kindA: {kindB}}, est, NewLedger())
	d.MTU = 900

	q := interest.NewQueue()
	entity := ids.StableId(1)
	q.PushBack(interest.Interest{Entity: entity, Kind: kindA})

	out := d.SelectForClient(1, 1, q)
	assert.Empty(t, out)
	assert.Equal(t, 1, q.Len())
	first, _ := q.PeekFirst()
	assert.Equal(t, interest.Interest{Entity: entity, Kind: kindA}, first)
}

func TestDependencyGroupSentAtomically(t *testing.T) {
	est := newEstimator(map[ids.ComponentKind]int{kindA: 100, kindB: 100})
	d := New(Requires{kindA: {kindB}}, est, NewLedger())
	d.MTU = 1500

	q := interest.NewQueue()
	entity := ids.StableId(1)
	q.PushBack(interest.Interest{Entity: entity, Kind: kindA})
	// B independently queued too; must not be sent/counted twice.
	q.PushBack(interest.Interest{Entity: entity, Kind: kindB})

	out := d.SelectForClient(1, 1, q)
	assert.ElementsMatch(t, []interest.Interest{
		{Entity: entity, Kind: kindA},
		{Entity: entity, Kind: kindB},
	}, out)
	assert.Equal(t, 0, q.Len())
}

func TestSelectRecordsLedger(t *testing.T) {
	est := newEstimator(map[ids.ComponentKind]int{kindA: 100})
	ledger := NewLedger()
	d := New(Requires{}, est, ledger)
	q := interest.NewQueue()
	q.PushBack(interest.Interest{Entity: 1, Kind: kindA})

	d.SelectForClient(ids.ClientId(1), 7, q)
	assert.Equal(t, 1, ledger.Len(ids.ClientId(1)))

	resent := ledger.DrainForResend(ids.ClientId(1), 8)
	assert.Len(t, resent, 1)
	assert.Equal(t, 0, ledger.Len(ids.ClientId(1)))
}
