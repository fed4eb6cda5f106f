package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Epsilon guards ratios whose denominator may legitimately be zero
const Epsilon = 1e-9

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopulationStdDev calculates the population (N, not N-1) standard deviation
func PopulationStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// Median returns the middle value, averaging the two central values for even counts
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// Max returns the largest value, 0 for empty input
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// Min returns the smallest value, 0 for empty input
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Min(data)
}

// Sum returns the sum of all values
func Sum(data []float64) float64 {
	return floats.Sum(data)
}

// SumSquares returns the signal power sum
func SumSquares(data []float64) float64 {
	return floats.Dot(data, data)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(SumSquares(data) / float64(len(data)))
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value in data is finite
func AllFinite(data []float64) bool {
	for _, v := range data {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// MedianFilter applies a centered median filter of the given (odd) size.
// Boundaries are handled by half-sample symmetric reflection (d c b a | a b c d).
func MedianFilter(data []float64, windowSize int) []float64 {
	if len(data) == 0 || windowSize <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	n := len(data)
	half := windowSize / 2
	result := make([]float64, n)
	window := make([]float64, windowSize)

	for i := 0; i < n; i++ {
		for k := 0; k < windowSize; k++ {
			window[k] = data[reflectIndex(i-half+k, n)]
		}
		sort.Float64s(window)
		result[i] = window[half]
	}

	return result
}

// reflectIndex maps an out of range index back into [0, n) by symmetric reflection
func reflectIndex(idx, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	idx %= period
	if idx < 0 {
		idx += period
	}
	if idx >= n {
		idx = period - 1 - idx
	}
	return idx
}

// ParabolicPeak refines the position of an extremum at index i using its two neighbours.
// Returns the fractional offset in [-0.5, 0.5] and the interpolated value.
func ParabolicPeak(data []float64, i int) (offset, value float64) {
	if i <= 0 || i >= len(data)-1 {
		return 0, data[i]
	}

	a, b, c := data[i-1], data[i], data[i+1]
	denom := a - 2*b + c
	if math.Abs(denom) < 1e-12 {
		return 0, b
	}

	offset = 0.5 * (a - c) / denom
	if offset > 0.5 || offset < -0.5 {
		return 0, b
	}
	value = b - 0.25*(a-c)*offset
	return offset, value
}
