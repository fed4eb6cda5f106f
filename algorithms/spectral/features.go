package spectral

import (
	"fmt"

	"github.com/RyanBlaney/vocalytics/algorithms/windowing"
	"github.com/RyanBlaney/vocalytics/logging"
)

// Features holds per-frame spectral descriptors, all aligned to the same centered frames
type Features struct {
	Centroid  []float64 `json:"centroid"`
	Bandwidth []float64 `json:"bandwidth"`
	Rolloff   []float64 `json:"rolloff"`
	Flatness  []float64 `json:"flatness"`
}

// Analyzer computes the spectral shape descriptors of a mono signal
type Analyzer struct {
	sampleRate     int
	frameLength    int
	hopLength      int
	rolloffPercent float64

	stft      *STFT
	centroid  *SpectralCentroid
	bandwidth *SpectralBandwidth
	rolloff   *SpectralRolloff
	flatness  *SpectralFlatness
	logger    logging.Logger
}

// NewAnalyzer creates a spectral analyzer with a periodic Hann window of frameLength samples
func NewAnalyzer(sampleRate, frameLength, hopLength int) *Analyzer {
	return &Analyzer{
		sampleRate:     sampleRate,
		frameLength:    frameLength,
		hopLength:      hopLength,
		rolloffPercent: DefaultRolloffPercent,
		stft:           NewSTFT(),
		centroid:       NewSpectralCentroid(sampleRate),
		bandwidth:      NewSpectralBandwidth(sampleRate),
		rolloff:        NewSpectralRolloff(sampleRate),
		flatness:       NewSpectralFlatness(),
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_analyzer",
		}),
	}
}

// SetRolloffPercent overrides the rolloff energy share (0-1)
func (a *Analyzer) SetRolloffPercent(p float64) {
	if p > 0 && p < 1 {
		a.rolloffPercent = p
	}
}

// Analyze returns the four spectral series of the signal.
// An empty signal yields empty series.
func (a *Analyzer) Analyze(signal []float64) (*Features, error) {
	if len(signal) == 0 {
		return &Features{}, nil
	}
	if a.frameLength <= 0 || a.hopLength <= 0 {
		return nil, fmt.Errorf("invalid framing: frame=%d hop=%d", a.frameLength, a.hopLength)
	}

	window := windowing.NewPeriodicHann(a.frameLength)
	result, err := a.stft.ComputeCentered(signal, a.frameLength, a.hopLength, a.sampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	centroids := a.centroid.ComputeFrames(result.Magnitude)
	features := &Features{
		Centroid:  centroids,
		Bandwidth: a.bandwidth.ComputeFrames(result.Magnitude, centroids),
		Rolloff:   a.rolloff.ComputeFrames(result.Magnitude, a.rolloffPercent),
		Flatness:  a.flatness.ComputeFrames(result.Magnitude),
	}

	a.logger.Debug("Computed spectral features", logging.Fields{
		"frames":     result.TimeFrames,
		"freq_bins":  result.FreqBins,
		"frame_size": a.frameLength,
		"hop_size":   a.hopLength,
	})

	return features, nil
}
