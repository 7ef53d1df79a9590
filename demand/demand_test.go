package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmitThenDrainReturnsRequest(t *testing.T) {
	q := New()
	q.Submit(1, 7)
	reqs := q.Drain()
	assert.Equal(t, []Request{{Entity: 1, Client: 7}}, reqs)
	assert.Equal(t, 0, q.Len())
}

func TestLaterDemandSupersedesEarlier(t *testing.T) {
	q := New()
	q.Submit(1, 7)
	q.Submit(1, 9)
	reqs := q.Drain()
	assert.Equal(t, []Request{{Entity: 1, Client: 9}}, reqs)
}

func TestDrainEmptyReturnsNil(t *testing.T) {
	q := New()
	assert.Nil(t, q.Drain())
}
