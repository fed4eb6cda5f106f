package windowing

import (
	"math"
)

// Kaiser is a continuous Kaiser window over [-halfWidth, halfWidth].
// Band-limited interpolation evaluates it at fractional offsets, so unlike
// Hann it is not sampled into a fixed coefficient table.
type Kaiser struct {
	halfWidth float64
	beta      float64
	i0Beta    float64
}

// NewKaiser creates a Kaiser window spanning [-halfWidth, halfWidth]
func NewKaiser(halfWidth, beta float64) *Kaiser {
	return &Kaiser{
		halfWidth: halfWidth,
		beta:      beta,
		i0Beta:    BesselI0(beta),
	}
}

// At evaluates the window at offset x; zero outside the support
func (k *Kaiser) At(x float64) float64 {
	if k.halfWidth <= 0 {
		return 0
	}
	r := x / k.halfWidth
	if r <= -1 || r >= 1 {
		return 0
	}
	return BesselI0(k.beta*math.Sqrt(1-r*r)) / k.i0Beta
}

// BesselI0 computes the zero-order modified Bessel function of the first kind
func BesselI0(x float64) float64 {
	// Series expansion approximation
	sum := 1.0
	term := 1.0

	for i := 1; i < 100; i++ {
		term *= (x / (2.0 * float64(i))) * (x / (2.0 * float64(i)))
		sum += term

		if term < 1e-12*sum {
			break
		}
	}

	return sum
}
