package tonal

import (
	"fmt"

	"github.com/RyanBlaney/vocalytics/algorithms/common"
	"github.com/RyanBlaney/vocalytics/algorithms/spectral"
	"github.com/RyanBlaney/vocalytics/algorithms/windowing"
)

// PeakPicker estimates f0 from the strongest spectral peak of each frame.
// It is a cheap fallback when the probabilistic tracker cannot run.
type PeakPicker struct {
	sampleRate  int
	frameLength int
	hopLength   int
	minFreq     float64
	maxFreq     float64
	threshold   float64 // Fraction of the frame maximum a peak must exceed

	stft *spectral.STFT
}

// NewPeakPicker creates a spectral peak pitch estimator
func NewPeakPicker(sampleRate, frameLength, hopLength int, minFreq, maxFreq float64) *PeakPicker {
	return &PeakPicker{
		sampleRate:  sampleRate,
		frameLength: frameLength,
		hopLength:   hopLength,
		minFreq:     minFreq,
		maxFreq:     maxFreq,
		threshold:   0.1,
		stft:        spectral.NewSTFT(),
	}
}

// Track returns one f0 estimate per centered frame
func (pp *PeakPicker) Track(signal []float64) (*PitchEstimate, error) {
	if len(signal) == 0 {
		return &PitchEstimate{F0: []common.NullFloat{}, Voiced: []bool{}, Method: MethodPeakPicking}, nil
	}
	if pp.sampleRate <= 0 || pp.frameLength <= 0 || pp.hopLength <= 0 {
		return nil, fmt.Errorf("invalid peak picker configuration")
	}

	window := windowing.NewPeriodicHann(pp.frameLength)
	result, err := pp.stft.ComputeCentered(signal, pp.frameLength, pp.hopLength, pp.sampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	estimate := &PitchEstimate{
		F0:     make([]common.NullFloat, result.TimeFrames),
		Voiced: make([]bool, result.TimeFrames),
		Method: MethodPeakPicking,
	}

	binHz := float64(pp.sampleRate) / float64(pp.frameLength)
	for t, spectrum := range result.Magnitude {
		pitch, magnitude := pp.framePeak(spectrum, binHz)
		if magnitude > 0 {
			estimate.F0[t] = common.Some(pitch)
			estimate.Voiced[t] = true
		}
	}

	return estimate, nil
}

// framePeak returns the interpolated frequency and magnitude of the strongest
// in-range local peak, or zero magnitude when no peak qualifies
func (pp *PeakPicker) framePeak(spectrum []float64, binHz float64) (float64, float64) {
	reference := pp.threshold * common.Max(spectrum)

	bestPitch, bestMag := 0.0, 0.0
	for k := 1; k < len(spectrum)-1; k++ {
		freq := float64(k) * binHz
		if freq < pp.minFreq || freq >= pp.maxFreq {
			continue
		}
		v := spectrum[k]
		if v <= reference || v <= spectrum[k-1] || v < spectrum[k+1] {
			continue
		}

		shift, mag := common.ParabolicPeak(spectrum, k)
		if mag > bestMag {
			bestMag = mag
			bestPitch = (float64(k) + shift) * binHz
		}
	}

	return bestPitch, bestMag
}
