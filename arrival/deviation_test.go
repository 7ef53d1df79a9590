package arrival

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsEmptyIsZero(t *testing.T) {
	tr := NewTracker()
	mean, stddev := tr.Stats()
	assert.Zero(t, mean)
	assert.Zero(t, stddev)
}

func TestStatsConstantGapHasZeroStddev(t *testing.T) {
	tr := NewTracker()
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		tr.Sample(base.Add(time.Duration(i) * 31250 * time.Microsecond))
	}
	mean, stddev := tr.Stats()
	assert.InDelta(t, 0.03125, mean, 1e-6)
	assert.InDelta(t, 0, stddev, 1e-6)
}

func TestWindowBounded(t *testing.T) {
	tr := NewTracker()
	base := time.Unix(0, 0)
	for i := 0; i < 200; i++ {
		tr.Sample(base.Add(time.Duration(i) * time.Millisecond))
	}
	assert.LessOrEqual(t, tr.Len(), WindowSize)
}
