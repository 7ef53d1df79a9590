package dispatcher

import (
	"sync"

	"replicore/ids"
)

// DefaultEstimateBytes seeds a ComponentKind's size estimate before any
// real observation exists (spec.md §6 defaults).
const DefaultEstimateBytes = 128

// OversizeThresholdBytes flags a component's actual serialized size for
// diagnostics (spec.md §4.4).
const OversizeThresholdBytes = 1000

// estimateAlpha is the exponential-moving-average smoothing factor used to
// learn each ComponentKind's typical serialized size from observations.
const estimateAlpha = 0.2

// SizeEstimator tracks a per-ComponentKind exponentially-weighted moving
// average of serialized size. A kind reports DefaultEstimateBytes until its
// first observation, which replaces that default outright.
type SizeEstimator struct {
	mu        sync.Mutex
	estimates map[ids.ComponentKind]float64
}

// NewSizeEstimator returns an estimator with no observations yet.
func NewSizeEstimator() *SizeEstimator {
	return &SizeEstimator{estimates: make(map[ids.ComponentKind]float64)}
}

// Estimate returns the current size estimate for kind, in bytes.
func (e *SizeEstimator) Estimate(kind ids.ComponentKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.estimates[kind]; ok {
		return int(v)
	}
	return DefaultEstimateBytes
}

// IsOversize reports whether an actual serialized component length should
// be flagged for diagnostics (spec.md §4.4: "oversize components (> 1000
// bytes) are flagged for diagnostics").
func IsOversize(actualBytes int) bool { return actualBytes > OversizeThresholdBytes }

// Observe folds an actual serialized length into kind's moving average.
func (e *SizeEstimator) Observe(kind ids.ComponentKind, actualBytes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.estimates[kind]
	if !ok {
		e.estimates[kind] = float64(actualBytes)
		return
	}
	e.estimates[kind] = prev + estimateAlpha*(float64(actualBytes)-prev)
}
