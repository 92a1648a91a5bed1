// Package quantize maps similarity-range floats onto 16-bit unsigned
// integers for consumers that only handle integers (e.g. encrypted-domain
// processing). The mapping is fixed and must not change: values are clipped
// to [-1, 1], shifted to [0, 1] and scaled by 65535 with round-half-away.
package quantize

import (
	"math"

	"chat-similarity/internal/embeddings"
)

// Levels is the largest quantized value.
const Levels = 65535

// Quantize returns round(((clip(x, -1, 1) + 1) / 2) * 65535).
// NaN clips to -1.
func Quantize(x float32) uint16 {
	if math.IsNaN(float64(x)) {
		x = -1
	}
	xc := min(max(x, -1), 1)
	y := ((xc + 1) / 2) * Levels
	r := math.Round(float64(y))
	return uint16(min(max(r, 0), Levels))
}

// Dequantize is the inverse mapping (u / 65535) * 2 - 1.
func Dequantize(u uint16) float32 {
	return (float32(u)/Levels)*2 - 1
}

// QuantizeVector quantizes every component of v.
func QuantizeVector(v embeddings.Vector) []uint16 {
	out := make([]uint16, len(v))
	for i, x := range v {
		out[i] = Quantize(x)
	}
	return out
}

// DequantizeVector reverses QuantizeVector up to quantization error.
func DequantizeVector(us []uint16) embeddings.Vector {
	out := make(embeddings.Vector, len(us))
	for i, u := range us {
		out[i] = Dequantize(u)
	}
	return out
}
