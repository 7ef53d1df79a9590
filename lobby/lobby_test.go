package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"replicore/host"
	"replicore/ids"
)

func TestAssignAndLookup(t *testing.T) {
	l := New()
	l.Assign(1, "car-a")
	h, ok := l.Handle(1)
	assert.True(t, ok)
	assert.Equal(t, "car-a", h)
}

func TestRemoveClearsEntry(t *testing.T) {
	l := New()
	l.Assign(1, "car-a")
	l.Remove(1)
	_, ok := l.Handle(1)
	assert.False(t, ok)
}

func TestEachVisitsEveryClient(t *testing.T) {
	l := New()
	l.Assign(1, "a")
	l.Assign(2, "b")
	seen := map[ids.ClientId]string{}
	l.Each(func(c ids.ClientId, h host.Handle) {
		seen[c] = h.(string)
	})
	assert.Equal(t, map[ids.ClientId]string{1: "a", 2: "b"}, seen)
	assert.Equal(t, 2, l.Len())
}
