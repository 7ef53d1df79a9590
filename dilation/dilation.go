// Package dilation implements the client-side controller that biases the
// SimDriver's fixed step to converge on a target lead over the server,
// without the hard jumps that would disrupt simulation continuity.
package dilation

import (
	"time"

	"replicore/tick"
)

// DefaultFraction is the bias applied per feedback event: 1% of the base
// step, per spec.md §4.7.
const DefaultFraction = 0.01

// Controller is the sole writer of a Driver's AccelSign/AccelDelta. It is
// driven only by the client-side buffer error computed from incoming
// UpdateMessages (spec.md §4.6); the server never dilates time.
type Controller struct {
	step     time.Duration
	fraction float64
}

// New returns a controller for the given base step, using DefaultFraction.
func New(step time.Duration) *Controller {
	return &Controller{step: step, fraction: DefaultFraction}
}

// SetFraction overrides the per-event bias fraction (default 1%).
func (c *Controller) SetFraction(f float64) { c.fraction = f }

// Accel requests the driver run faster (client behind, catching up) by the
// given fraction of the base step; fraction <= 0 falls back to the
// controller's configured default.
func (c *Controller) Accel(d *tick.Driver, fraction float64) {
	d.SetAccel(tick.AccelFaster, c.delta(fraction))
}

// Decel requests the driver run slower (client ahead, holding back).
func (c *Controller) Decel(d *tick.Driver, fraction float64) {
	d.SetAccel(tick.AccelSlower, c.delta(fraction))
}

// Neutral clears any bias, running the driver at its nominal step.
func (c *Controller) Neutral(d *tick.Driver) {
	d.SetAccel(tick.AccelNone, 0)
}

func (c *Controller) delta(fraction float64) time.Duration {
	f := fraction
	if f <= 0 {
		f = c.fraction
	}
	return time.Duration(float64(c.step) * f)
}

// FrameBuffer computes the target lead of client tick over the latest
// known server tick: one_way_rtt/2 + 2*stddev + 3*step, per spec.md §4.6.
func FrameBuffer(oneWayRTT time.Duration, stddev float32, step time.Duration) time.Duration {
	return oneWayRTT/2 + time.Duration(2*float64(stddev)*float64(time.Second)) + 3*step
}

// Feedback applies the buffer-error decision from spec.md §4.6: if the
// client is further ahead of the server than frameBuffer calls for, decel;
// if it is behind, accel; within tolerance, go neutral.
func Feedback(d *tick.Driver, c *Controller, diff, frameBuffer time.Duration) {
	switch {
	case diff > frameBuffer:
		c.Decel(d, 0)
	case diff < frameBuffer:
		c.Accel(d, 0)
	default:
		c.Neutral(d)
	}
}
