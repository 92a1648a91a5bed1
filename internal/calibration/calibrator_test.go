package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPercentAnchors(t *testing.T) {
	for _, b := range []float64{-0.5, 0, 0.2, 0.6, 0.95} {
		assert.Equal(t, 10.0, ToPercent(b, b, 10, 100), "at baseline %v", b)
		assert.Equal(t, 10.0, ToPercent(b-0.1, b, 10, 100), "below baseline %v", b)
		assert.InDelta(t, 100.0, ToPercent(1, b, 10, 100), 1e-2, "cos 1, baseline %v", b)
	}
}

func TestToPercentValues(t *testing.T) {
	// t = 0.4 / 0.800001
	assert.InDelta(t, 55.0, ToPercent(0.6, 0.2, 10, 100), 1e-3)
	assert.InDelta(t, 50.0, ToPercent(0.5, 0, 0, 100), 1e-3)
}

func TestToPercentPerfectMatchStopsShortOfHi(t *testing.T) {
	got := ToPercent(1, 0.2, 10, 100)
	assert.InDelta(t, 99.9998875, got, 1e-9)
	assert.Less(t, got, 100.0)
}

func TestToPercentClamps(t *testing.T) {
	assert.Equal(t, 100.0, ToPercent(1.5, 0.2, 10, 100))
	// Baseline at 1 still maps into range thanks to epsilon.
	assert.Equal(t, 10.0, ToPercent(1, 1, 10, 100))
}

func TestToPercentMonotonic(t *testing.T) {
	for _, b := range []float64{-0.3, 0.1, 0.2, 0.7} {
		prev := ToPercent(-1, b, 10, 100)
		for c := -1.0; c <= 1.0; c += 0.01 {
			p := ToPercent(c, b, 10, 100)
			assert.GreaterOrEqual(t, p, prev, "baseline %v cos %v", b, c)
			assert.GreaterOrEqual(t, p, 10.0)
			assert.LessOrEqual(t, p, 100.0)
			prev = p
		}
	}
}

func TestNewCalibrator(t *testing.T) {
	_, err := NewCalibrator(Bounds{Lo: 90, Hi: 10}, 0)
	assert.ErrorIs(t, err, ErrInvalidBounds)

	c, err := NewCalibrator(Bounds{Lo: 0, Hi: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultEpsilon, c.Epsilon)
	assert.InDelta(t, 0.5, c.ToPercent(0.5, 0), 1e-5)
}
