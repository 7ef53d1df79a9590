package dilation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"replicore/tick"
)

func TestAccelShortensEffectiveStep(t *testing.T) {
	d := tick.NewDriver(30*time.Millisecond, nil)
	c := New(30 * time.Millisecond)
	c.Accel(d, 0)
	assert.Less(t, d.Info().EffectiveStep(), 30*time.Millisecond)
}

func TestDecelLengthensEffectiveStep(t *testing.T) {
	d := tick.NewDriver(30*time.Millisecond, nil)
	c := New(30 * time.Millisecond)
	c.Decel(d, 0)
	assert.Greater(t, d.Info().EffectiveStep(), 30*time.Millisecond)
}

func TestFeedbackPicksDirection(t *testing.T) {
	d := tick.NewDriver(30*time.Millisecond, nil)
	c := New(30 * time.Millisecond)
	fb := FrameBuffer(20*time.Millisecond, 1, 30*time.Millisecond)

	Feedback(d, c, fb+time.Second, fb) // far ahead -> decelerate
	assert.Greater(t, d.Info().EffectiveStep(), 30*time.Millisecond)

	Feedback(d, c, 0, fb) // behind -> accelerate
	assert.Less(t, d.Info().EffectiveStep(), 30*time.Millisecond)
}
