package temporal

import (
	"math"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
)

// Energy computes frame-level loudness features
type Energy struct {
	frameSize int
	hopSize   int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize int) *Energy {
	return &Energy{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// ComputeRMS calculates root-mean-square energy over centered frames.
// The signal is zero-padded by frameSize/2 on both sides so frame t is centered
// on sample t*hopSize, giving 1 + len/hop frames. Empty input yields no frames.
func (e *Energy) ComputeRMS(signal []float64) []float64 {
	if len(signal) == 0 || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	pad := e.frameSize / 2
	numFrames := 1 + len(signal)/e.hopSize
	energies := make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		// Frame bounds in padded coordinates, mapped back onto the signal
		start := i*e.hopSize - pad
		end := start + e.frameSize

		lo := max(start, 0)
		hi := min(end, len(signal))

		sumSquares := 0.0
		if lo < hi {
			sumSquares = common.SumSquares(signal[lo:hi])
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}

// IsSilent reports whether every frame is at or below threshold.
// An empty series counts as silent.
func IsSilent(energies []float64, threshold float64) bool {
	for _, v := range energies {
		if v > threshold {
			return false
		}
	}
	return true
}
