package spectral

// SpectralCentroid computes the magnitude-weighted mean frequency of a spectrum
type SpectralCentroid struct {
	sampleRate int
	freqBins   []float64 // Pre-calculated frequency bins for efficiency
}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid(sampleRate int) *SpectralCentroid {
	return &SpectralCentroid{
		sampleRate: sampleRate,
	}
}

// Compute calculates spectral centroid for a single magnitude spectrum.
// A spectrum with no energy has a centroid of 0 Hz.
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	if len(sc.freqBins) != len(spectrum) {
		sc.freqBins = FrequencyBins(len(spectrum), sc.sampleRate)
	}

	numerator := 0.0
	denominator := 0.0

	for i, mag := range spectrum {
		numerator += sc.freqBins[i] * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// ComputeFrames processes multiple frames efficiently
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}

	return centroids
}

// FrequencyBins returns the center frequency of each of numBins positive-frequency bins
// (0 .. sampleRate/2 inclusive)
func FrequencyBins(numBins, sampleRate int) []float64 {
	bins := make([]float64, numBins)
	if numBins < 2 {
		return bins
	}
	for i := 0; i < numBins; i++ {
		bins[i] = float64(i) * float64(sampleRate) / float64((numBins-1)*2)
	}
	return bins
}
