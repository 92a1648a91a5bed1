package calibration

import (
	"errors"
	"fmt"
)

// DefaultEpsilon keeps the rescaling finite when the baseline approaches 1.
const DefaultEpsilon = 1e-6

// ErrInvalidBounds is returned for percent bounds with Lo > Hi.
var ErrInvalidBounds = errors.New("invalid percent bounds")

// Bounds is the closed percent interval scores are mapped into.
type Bounds struct {
	Lo float64
	Hi float64
}

// DefaultBounds is [10, 100].
var DefaultBounds = Bounds{Lo: 10, Hi: 100}

// Calibrator maps cosine similarity to a percentage given a baseline.
type Calibrator struct {
	Bounds  Bounds
	Epsilon float64
}

// NewCalibrator validates the bounds. A non-positive epsilon selects
// DefaultEpsilon.
func NewCalibrator(b Bounds, epsilon float64) (Calibrator, error) {
	if b.Lo > b.Hi {
		return Calibrator{}, fmt.Errorf("%w: lo %.2f > hi %.2f", ErrInvalidBounds, b.Lo, b.Hi)
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return Calibrator{Bounds: b, Epsilon: epsilon}, nil
}

// ToPercent anchors anything at or below baseline to Lo and maps
// (baseline, 1] linearly onto (Lo, Hi], clamping the result.
// Epsilon keeps a cosine of exactly 1 just under Hi (99.9998875 for
// baseline 0.2 on [10, 100]), so compare against Hi with a tolerance.
func (c Calibrator) ToPercent(cosine, baseline float64) float64 {
	lo, hi := c.Bounds.Lo, c.Bounds.Hi
	if cosine <= baseline {
		return lo
	}
	t := (cosine - baseline) / (1 - baseline + c.Epsilon)
	pct := lo + (hi-lo)*t
	return min(max(pct, lo), hi)
}

// ToPercent is Calibrator.ToPercent with DefaultEpsilon.
func ToPercent(cosine, baseline, lo, hi float64) float64 {
	return Calibrator{Bounds: Bounds{Lo: lo, Hi: hi}, Epsilon: DefaultEpsilon}.ToPercent(cosine, baseline)
}
