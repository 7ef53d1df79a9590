package interest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ids"
)

func mkInterest(n int) Interest {
	return Interest{Entity: ids.StableId(n), Kind: ids.ComponentKind(n % 7)}
}

func TestPushBackDedup(t *testing.T) {
	q := NewQueue()
	x := mkInterest(1)
	q.PushBack(x)
	q.PushBack(x)
	assert.Equal(t, 1, q.Len())
}

func TestPushFrontPromotesExisting(t *testing.T) {
	q := NewQueue()
	a, b, c := mkInterest(1), mkInterest(2), mkInterest(3)
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)
	q.PushFront(c) // promote existing tail entry to head
	assert.Equal(t, 3, q.Len())
	first, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, c, first)
}

func TestPopFrontFIFOOrder(t *testing.T) {
	q := NewQueue()
	var want []Interest
	for i := 0; i < 10; i++ {
		x := mkInterest(i)
		want = append(want, x)
		q.PushBack(x)
	}
	var got []Interest
	for {
		x, ok := q.PopFront()
		if !ok {
			break
		}
		got = append(got, x)
	}
	assert.Equal(t, want, got)
}

// TestSetListInvariant is the property from spec.md §8: for any sequence of
// push_back/push_front/pop_front, |S| == |L| and L has no duplicates.
func TestSetListInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := NewQueue()
	universe := make([]Interest, 50)
	for i := range universe {
		universe[i] = mkInterest(i)
	}

	for i := 0; i < 5000; i++ {
		x := universe[rng.Intn(len(universe))]
		switch rng.Intn(3) {
		case 0:
			q.PushBack(x)
		case 1:
			q.PushFront(x)
		case 2:
			q.PopFront()
		}

		seen := map[Interest]bool{}
		count := 0
		q.Iter(func(it Interest) {
			require.False(t, seen[it], "duplicate %v in L", it)
			seen[it] = true
			count++
		})
		assert.Equal(t, q.Len(), count)
		assert.Equal(t, len(q.index), count)
	}
}
